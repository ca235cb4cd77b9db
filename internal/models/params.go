package models

// Params is the parameter bag the billing host passes to every callback.
// The server password field carries the panel bearer token and the access
// hash carries the request timeout (legacy form "id,port").
type Params struct {
	ServiceID int `json:"serviceid"`
	ServerID  int `json:"serverid"`
	ClientID  int `json:"clientid"`
	PackageID int `json:"packageid"`

	ServerHostname   string `json:"serverhostname"`
	ServerUsername   string `json:"serverusername"`
	ServerPassword   string `json:"serverpassword"`
	ServerSecure     *bool  `json:"serversecure"`
	ServerAccessHash string `json:"serveraccesshash"`

	ConfigOption1 string `json:"configoption1"` // server for squad list
	ConfigOption2 string `json:"configoption2"` // internal squad id
	ConfigOption3 string `json:"configoption3"` // traffic cap (GB)
	ConfigOption4 string `json:"configoption4"` // expiry (days)
	ConfigOption5 string `json:"configoption5"` // IP limit
	ConfigOption6 string `json:"configoption6"` // client comment format
	ConfigOption7 string `json:"configoption7"` // start expiry after first use
	ConfigOption8 string `json:"configoption8"` // start expiry after first use (older layouts)

	// Named configurable options chosen at order time
	ConfigOptions map[string]string `json:"configoptions,omitempty"`

	Client ClientDetails `json:"client"`
}

type ClientDetails struct {
	Email string `json:"email"`
}

// ProductConfig is the product-level provisioning setup resolved from Params
type ProductConfig struct {
	ServerForList            int
	SquadID                  string
	TrafficGB                int
	ExpiryDays               int
	IPLimit                  int
	CommentFormat            string
	StartExpiryAfterFirstUse bool
}
