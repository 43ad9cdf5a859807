package normalize

import (
	"regexp"
	"strings"
)

// ISO 3166-1 alpha-3 lookup for the nationality strings the recognition
// engine actually produces: Chinese names, English names and the common
// abbreviations seen on passports.
var countryCodes = map[string]string{
	// Chinese names
	"中国":      "CHN",
	"中华人民共和国": "CHN",
	"新西兰":     "NZL",
	"澳大利亚":    "AUS",
	"美国":      "USA",
	"英国":      "GBR",
	"加拿大":     "CAN",
	"日本":      "JPN",
	"韩国":      "KOR",
	"新加坡":     "SGP",
	"德国":      "DEU",
	"法国":      "FRA",
	"意大利":     "ITA",
	"西班牙":     "ESP",
	"荷兰":      "NLD",
	"瑞士":      "CHE",
	"瑞典":      "SWE",
	"挪威":      "NOR",
	"丹麦":      "DNK",
	"芬兰":      "FIN",
	"俄罗斯":     "RUS",
	"印度":      "IND",
	"巴西":      "BRA",
	"墨西哥":     "MEX",
	"阿根廷":     "ARG",
	"南非":      "ZAF",
	"埃及":      "EGY",
	"泰国":      "THA",
	"马来西亚":    "MYS",
	"印度尼西亚":   "IDN",
	"菲律宾":     "PHL",
	"越南":      "VNM",
	"阿联酋":     "ARE",
	"沙特阿拉伯":   "SAU",
	"土耳其":     "TUR",
	"以色列":     "ISR",
	"希腊":      "GRC",
	"葡萄牙":     "PRT",
	"波兰":      "POL",
	"爱尔兰":     "IRL",
	"奥地利":     "AUT",
	"比利时":     "BEL",
	"捷克":      "CZE",
	"匈牙利":     "HUN",
	"罗马尼亚":    "ROU",
	"乌克兰":     "UKR",
	"智利":      "CHL",
	"秘鲁":      "PER",
	"哥伦比亚":    "COL",

	// English names
	"CHINA":                    "CHN",
	"P.R.CHINA":                "CHN",
	"PRC":                      "CHN",
	"NEW ZEALAND":              "NZL",
	"AUSTRALIA":                "AUS",
	"UNITED STATES":            "USA",
	"USA":                      "USA",
	"UNITED STATES OF AMERICA": "USA",
	"UNITED KINGDOM":           "GBR",
	"UK":                       "GBR",
	"GREAT BRITAIN":            "GBR",
	"CANADA":                   "CAN",
	"JAPAN":                    "JPN",
	"KOREA":                    "KOR",
	"SOUTH KOREA":              "KOR",
	"REPUBLIC OF KOREA":        "KOR",
	"SINGAPORE":                "SGP",
	"GERMANY":                  "DEU",
	"FRANCE":                   "FRA",
	"ITALY":                    "ITA",
	"SPAIN":                    "ESP",
	"NETHERLANDS":              "NLD",
	"SWITZERLAND":              "CHE",
	"SWEDEN":                   "SWE",
	"NORWAY":                   "NOR",
	"DENMARK":                  "DNK",
	"FINLAND":                  "FIN",
	"RUSSIA":                   "RUS",
	"RUSSIAN FEDERATION":       "RUS",
	"INDIA":                    "IND",
	"BRAZIL":                   "BRA",
	"MEXICO":                   "MEX",
	"ARGENTINA":                "ARG",
	"SOUTH AFRICA":             "ZAF",
	"EGYPT":                    "EGY",
	"THAILAND":                 "THA",
	"MALAYSIA":                 "MYS",
	"INDONESIA":                "IDN",
	"PHILIPPINES":              "PHL",
	"VIETNAM":                  "VNM",
	"VIET NAM":                 "VNM",
	"UAE":                      "ARE",
	"UNITED ARAB EMIRATES":     "ARE",
	"SAUDI ARABIA":             "SAU",
	"TURKEY":                   "TUR",
	"ISRAEL":                   "ISR",
	"GREECE":                   "GRC",
	"PORTUGAL":                 "PRT",
	"POLAND":                   "POL",
	"IRELAND":                  "IRL",
	"AUSTRIA":                  "AUT",
	"BELGIUM":                  "BEL",
	"CZECH":                    "CZE",
	"CZECH REPUBLIC":           "CZE",
	"HUNGARY":                  "HUN",
	"ROMANIA":                  "ROU",
	"UKRAINE":                  "UKR",
	"CHILE":                    "CHL",
	"PERU":                     "PER",
	"COLOMBIA":                 "COL",
}

var alpha3 = regexp.MustCompile(`^[A-Z]{3}$`)

// CountryCode maps a free-text nationality to its ISO alpha-3 code. An input
// that already is an alpha-3 code is returned as-is. Unmapped input falls
// back to its own first three uppercased characters; input shorter than
// three characters becomes "OTH"; empty input stays empty.
func CountryCode(country string) string {
	if country == "" {
		return ""
	}

	if alpha3.MatchString(country) {
		return country
	}

	normalized := strings.ToUpper(strings.TrimSpace(country))

	if code, ok := countryCodes[normalized]; ok {
		return code
	}
	if code, ok := countryCodes[country]; ok {
		return code
	}

	runes := []rune(normalized)
	if len(runes) >= 3 {
		return string(runes[:3])
	}
	return "OTH"
}
