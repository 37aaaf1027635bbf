// Command wextctl issues wireless-extension driver commands to a wireless
// interface.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt)

	go func() {
		s := <-sigC
		log.Infof("got %v, exiting", s)
		cancel()

		<-time.After(15 * time.Second)
		log.Fatal("took too long to shut down, forcefully exiting")
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
