package identity

import "math/rand"

// HeaderProfile is one coherent browser fingerprint: the user agent and the
// request headers a real browser of that build would send alongside it.
// Mixing headers across profiles is itself a detection signal, so a profile
// is always handed out whole.
type HeaderProfile struct {
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	AcceptEncoding  string
	SecChUa         string
	SecChUaMobile   string
	SecChUaPlatform string
}

var profiles = []HeaderProfile{
	{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		AcceptLanguage:  "en-US,en;q=0.9",
		AcceptEncoding:  "gzip, deflate, br, zstd",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
	},
	{
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		AcceptLanguage:  "en-US,en;q=0.9",
		AcceptEncoding:  "gzip, deflate, br, zstd",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"macOS"`,
	},
	{
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.5",
		AcceptEncoding:  "gzip, deflate, br",
		SecChUa:         `"Chromium";v="130", "Google Chrome";v="130", "Not?A_Brand";v="99"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Linux"`,
	},
	{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,png,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.5",
		AcceptEncoding:  "gzip, deflate, br, zstd",
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
	},
}

// RandomProfile picks one profile uniformly.
func RandomProfile() HeaderProfile {
	return profiles[rand.Intn(len(profiles))]
}

// HeaderMap returns the profile's headers keyed by wire name, user agent
// excluded since sessions apply it separately at open time.
func (p HeaderProfile) HeaderMap() map[string]string {
	h := map[string]string{
		"Accept":          p.Accept,
		"Accept-Language": p.AcceptLanguage,
		"Accept-Encoding": p.AcceptEncoding,
	}
	if p.SecChUa != "" {
		h["Sec-Ch-Ua"] = p.SecChUa
	}
	if p.SecChUaMobile != "" {
		h["Sec-Ch-Ua-Mobile"] = p.SecChUaMobile
	}
	if p.SecChUaPlatform != "" {
		h["Sec-Ch-Ua-Platform"] = p.SecChUaPlatform
	}
	return h
}
