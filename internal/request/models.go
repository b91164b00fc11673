package request

// AuthenticatedState values for customer ids.
const (
	AuthStateAuthenticated = "authenticated"
	AuthStateUnknown       = "unknown"
	AuthStateLoggedOut     = "logged_out"
)

// VisitorID carries the identifier variants a delivery request may arrive
// with. After normalization at least one identifier is always present.
type VisitorID struct {
	TntID                   string       `json:"tntId,omitempty"`
	MarketingCloudVisitorID string       `json:"marketingCloudVisitorId,omitempty"`
	ThirdPartyID            string       `json:"thirdPartyId,omitempty"`
	CustomerIDs             []CustomerID `json:"customerIds,omitempty"`
}

type CustomerID struct {
	ID                 string `json:"id"`
	IntegrationCode    string `json:"integrationCode,omitempty"`
	AuthenticatedState string `json:"authenticatedState,omitempty"`
}

// Geo is both the raw inbound geo hint and the resolved shape returned by
// the external resolver.
type Geo struct {
	IPAddress   string  `json:"ipAddress,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
	StateCode   string  `json:"stateCode,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

type Address struct {
	URL          string `json:"url,omitempty"`
	ReferringURL string `json:"referringUrl,omitempty"`
}

type Browser struct {
	Host string `json:"host,omitempty"`
}

// RequestContext is the raw device/browser/page context on an inbound
// delivery request.
type RequestContext struct {
	Channel   string   `json:"channel,omitempty"`
	UserAgent string   `json:"userAgent,omitempty"`
	Browser   *Browser `json:"browser,omitempty"`
	Address   *Address `json:"address,omitempty"`
	Geo       *Geo     `json:"geo,omitempty"`
}

// RequestDetails is a pageLoad ask.
type RequestDetails struct {
	Parameters        map[string]string `json:"parameters,omitempty"`
	ProfileParameters map[string]string `json:"profileParameters,omitempty"`
}

type MboxRequest struct {
	Index             int               `json:"index,omitempty"`
	Name              string            `json:"name"`
	Parameters        map[string]string `json:"parameters,omitempty"`
	ProfileParameters map[string]string `json:"profileParameters,omitempty"`
}

type ViewRequest struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type ExecuteRequest struct {
	PageLoad *RequestDetails `json:"pageLoad,omitempty"`
	Mboxes   []MboxRequest   `json:"mboxes,omitempty"`
}

type PrefetchRequest struct {
	PageLoad *RequestDetails `json:"pageLoad,omitempty"`
	Mboxes   []MboxRequest   `json:"mboxes,omitempty"`
	Views    []ViewRequest   `json:"views,omitempty"`
}

type Property struct {
	Token string `json:"token,omitempty"`
}

// DeliveryRequest is one inbound decisioning request. A non-nil Trace map
// asks for an evaluation trace on every ask's result.
type DeliveryRequest struct {
	RequestID string           `json:"requestId,omitempty"`
	ID        *VisitorID       `json:"id,omitempty"`
	Context   *RequestContext  `json:"context,omitempty"`
	Property  *Property        `json:"property,omitempty"`
	Trace     map[string]any   `json:"trace,omitempty"`
	Execute   *ExecuteRequest  `json:"execute,omitempty"`
	Prefetch  *PrefetchRequest `json:"prefetch,omitempty"`
}

// TraceRequested reports whether the caller asked for evaluation traces.
func (r *DeliveryRequest) TraceRequested() bool { return r != nil && r.Trace != nil }
