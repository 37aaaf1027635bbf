package wext

// Number of scan channels which identify a regulatory domain.
const (
	channelsFCC  = 11
	channelsETSI = 13
	channelsMKK1 = 14
)

// CountryCode returns the regulatory domain code for a number of scan
// channels. Counts which do not identify ETSI or MKK1 select the FCC domain.
func CountryCode(channels int) string {
	switch channels {
	case channelsETSI:
		return "EU"
	case channelsMKK1:
		return "JP"
	default:
		return "US"
	}
}
