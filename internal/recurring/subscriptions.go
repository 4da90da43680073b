package recurring

// knownServices is the normalized-merchant allowlist of streaming, SaaS and
// utility services. Matching is advisory metadata only; it plays no part in
// detection.
var knownServices = []string{
	"netflix",
	"spotify",
	"amazonprime",
	"primevideo",
	"disney",
	"disneyplus",
	"appletv",
	"applemusic",
	"icloud",
	"youtubepremium",
	"youtubemusic",
	"hulu",
	"nowtv",
	"paramountplus",
	"audible",
	"kindleunlimited",
	"dropbox",
	"googleone",
	"github",
	"adobe",
	"microsoft365",
	"office365",
	"onedrive",
	"playstationplus",
	"playstationnetwork",
	"xboxgamepass",
	"nintendoswitchonline",
	"britishgas",
	"edfenergy",
	"octopusenergy",
	"ovoenergy",
	"thameswater",
	"vodafone",
	"o2",
	"ee",
	"threeuk",
	"virginmedia",
	"sky",
	"bt",
	"plusnet",
	"talktalk",
}

// buildAllowlist merges the built-in services with config-supplied extras
// (already expected in normalized form).
func buildAllowlist(extra []string) map[string]bool {
	m := make(map[string]bool, len(knownServices)+len(extra))
	for _, s := range knownServices {
		m[s] = true
	}
	for _, s := range extra {
		if s != "" {
			m[s] = true
		}
	}
	return m
}
