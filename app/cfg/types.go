package cfg

type Cfg struct {
	// Session bootstrap configuration
	Mode        string
	Username    string
	Email       string
	Password    string
	Cookies     string
	CookiesFile string

	// Application configuration
	Port         string
	APIAccessKey string
	DBPath       string
	DevMode      bool

	// Upstream client configuration
	Language  string
	UserAgent string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
