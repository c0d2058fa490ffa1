package transform

import "strings"

// countryCodes maps normalized country names and codes to ISO 3166-1 alpha-2.
var countryCodes = map[string]string{
	"us": "US", "usa": "US", "united states": "US", "united states of america": "US", "america": "US",
	"ca": "CA", "can": "CA", "canada": "CA",
	"mx": "MX", "mex": "MX", "mexico": "MX",
	"gb": "GB", "uk": "GB", "gbr": "GB", "united kingdom": "GB", "great britain": "GB", "england": "GB",
	"ie": "IE", "irl": "IE", "ireland": "IE",
	"de": "DE", "deu": "DE", "germany": "DE", "deutschland": "DE",
	"fr": "FR", "fra": "FR", "france": "FR",
	"es": "ES", "esp": "ES", "spain": "ES", "españa": "ES",
	"it": "IT", "ita": "IT", "italy": "IT",
	"nl": "NL", "nld": "NL", "netherlands": "NL", "holland": "NL",
	"be": "BE", "bel": "BE", "belgium": "BE",
	"ch": "CH", "che": "CH", "switzerland": "CH",
	"se": "SE", "swe": "SE", "sweden": "SE",
	"no": "NO", "nor": "NO", "norway": "NO",
	"dk": "DK", "dnk": "DK", "denmark": "DK",
	"pl": "PL", "pol": "PL", "poland": "PL",
	"pt": "PT", "prt": "PT", "portugal": "PT",
	"au": "AU", "aus": "AU", "australia": "AU",
	"nz": "NZ", "nzl": "NZ", "new zealand": "NZ",
	"jp": "JP", "jpn": "JP", "japan": "JP",
	"cn": "CN", "chn": "CN", "china": "CN",
	"in": "IN", "ind": "IN", "india": "IN",
	"br": "BR", "bra": "BR", "brazil": "BR", "brasil": "BR",
	"ar": "AR", "arg": "AR", "argentina": "AR",
	"za": "ZA", "zaf": "ZA", "south africa": "ZA",
}

// CountryCode normalizes a free-form country to its alpha-2 code, falling back to
// fallback for anything not in the table.
func CountryCode(country, fallback string) string {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(country, ".", "")), " "))
	if code, ok := countryCodes[key]; ok {
		return code
	}
	return fallback
}
