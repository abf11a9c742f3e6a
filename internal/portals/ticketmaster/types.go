package ticketmaster

// Discovery API response shapes. Only the fields the adapter maps are decoded.

type eventsResponse struct {
	Embedded *struct {
		Events []apiEvent `json:"events"`
	} `json:"_embedded"`
	Page  apiPage   `json:"page"`
	Fault *apiFault `json:"fault"`
}

type apiPage struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

type apiFault struct {
	FaultString string `json:"faultstring"`
	Detail      struct {
		ErrorCode string `json:"errorcode"`
	} `json:"detail"`
}

type apiEvent struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	URL             string              `json:"url"`
	Dates           apiDates            `json:"dates"`
	Classifications []apiClassification `json:"classifications"`
	Embedded        struct {
		Venues      []apiVenue      `json:"venues"`
		Attractions []apiAttraction `json:"attractions"`
	} `json:"_embedded"`
}

type apiDates struct {
	Start    apiEventDate `json:"start"`
	Access   *apiAccess   `json:"access"`
	Timezone string       `json:"timezone"`
	Status   struct {
		Code string `json:"code"`
	} `json:"status"`
}

type apiEventDate struct {
	LocalDate      string `json:"localDate"`
	LocalTime      string `json:"localTime"`
	DateTime       string `json:"dateTime"`
	DateTBA        bool   `json:"dateTBA"`
	NoSpecificTime bool   `json:"noSpecificTime"`
}

type apiAccess struct {
	StartDateTime string `json:"startDateTime"`
}

type apiClassification struct {
	Primary  bool    `json:"primary"`
	Segment  apiName `json:"segment"`
	Genre    apiName `json:"genre"`
	SubGenre apiName `json:"subGenre"`
	Type     apiName `json:"type"`
	SubType  apiName `json:"subType"`
}

type apiName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiAttraction struct {
	ID              string                    `json:"id"`
	Name            string                    `json:"name"`
	URL             string                    `json:"url"`
	Classifications []apiClassification       `json:"classifications"`
	ExternalLinks   map[string][]apiLinkEntry `json:"externalLinks"`
}

type apiLinkEntry struct {
	URL string `json:"url"`
}

type apiVenue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Timezone string `json:"timezone"`
	City     struct {
		Name string `json:"name"`
	} `json:"city"`
	Country struct {
		Name        string `json:"name"`
		CountryCode string `json:"countryCode"`
	} `json:"country"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	Location *struct {
		Longitude string `json:"longitude"`
		Latitude  string `json:"latitude"`
	} `json:"location"`
}
