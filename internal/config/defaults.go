package config

const (
	defaultStateDir                 = "~/.local/share/mec"
	defaultLogDir                   = "~/.local/share/mec/logs"
	defaultGraphFile                = "~/.local/share/mec/graph/events.nt"
	defaultLogFormat                = "auto"
	defaultLogLevel                 = "info"
	defaultPollIntervalSeconds      = 300
	defaultUserAgent                = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultViewportWidth            = 1500
	defaultViewportHeight           = 1000
	defaultNavigationTimeoutSeconds = 60
	defaultTicketmasterBaseURL      = "https://app.ticketmaster.com/discovery/v2/"
	defaultTicketmasterCountry      = "CZ"
	defaultTicketmasterClass        = "music"
	defaultTicketmasterLocale       = "cs-CZ"
	defaultTicketmasterSort         = "date,name,asc"
	defaultTicketmasterPageSize     = 20
	defaultTicketmasterHour         = 2
	defaultTicketmasterIntervalMS   = 250
	defaultRequestTimeoutSeconds    = 30
	defaultGoOutBaseURL             = "https://goout.net/en/events/"
	defaultGoOutHour                = 2
	defaultGoOutCountry             = "Czechia"
	defaultGoOutCookieDomain        = ".goout.net"
	defaultTicketportalBaseURL      = "https://www.ticketportal.cz/hudba"
	defaultTicketportalHour         = 3
	defaultStream                   = "MUSIC_EVENTS"
	defaultSubjectPrefix            = "music-events"
	defaultConsumer                 = "mec-handler"
	defaultRelayIntervalSeconds     = 10
	defaultRelayBatch               = 100
	defaultDoorPolicy               = "equal-or-later"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Dispatcher: Dispatcher{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			Timezone:            "Local",
		},
		Browser: Browser{
			UserAgent:                defaultUserAgent,
			ViewportWidth:            defaultViewportWidth,
			ViewportHeight:           defaultViewportHeight,
			NavigationTimeoutSeconds: defaultNavigationTimeoutSeconds,
		},
		Ticketmaster: Ticketmaster{
			Enabled:               true,
			BaseURL:               defaultTicketmasterBaseURL,
			CountryCode:           defaultTicketmasterCountry,
			Classification:        defaultTicketmasterClass,
			Locale:                defaultTicketmasterLocale,
			Sort:                  defaultTicketmasterSort,
			PageSize:              defaultTicketmasterPageSize,
			DailyHour:             defaultTicketmasterHour,
			RequestIntervalMillis: defaultTicketmasterIntervalMS,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		GoOut: GoOut{
			Enabled:      true,
			BaseURL:      defaultGoOutBaseURL,
			DailyHour:    defaultGoOutHour,
			Country:      defaultGoOutCountry,
			CookieDomain: defaultGoOutCookieDomain,
		},
		Ticketportal: Ticketportal{
			Enabled:   true,
			BaseURL:   defaultTicketportalBaseURL,
			DailyHour: defaultTicketportalHour,
		},
		Queue: Queue{
			Stream:               defaultStream,
			SubjectPrefix:        defaultSubjectPrefix,
			Consumer:             defaultConsumer,
			RelayIntervalSeconds: defaultRelayIntervalSeconds,
			RelayBatch:           defaultRelayBatch,
		},
		Handler: Handler{
			GraphFile:  defaultGraphFile,
			DoorPolicy: defaultDoorPolicy,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: 10,
		},
	}
}
