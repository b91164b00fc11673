package request

import (
	"fmt"

	"github.com/google/uuid"
)

// AuthenticatedCustomerID returns the id of the first customer-id entry in
// the authenticated state, or "".
func AuthenticatedCustomerID(id *VisitorID) string {
	if id == nil {
		return ""
	}
	for _, c := range id.CustomerIDs {
		if c.AuthenticatedState == AuthStateAuthenticated {
			return c.ID
		}
	}
	return ""
}

// ValidVisitorID returns id unchanged when any identifier is present.
// Otherwise it synthesizes a tntId of the form <uuid>[.{hint}_0], so a
// normalized request never carries a fully empty visitor id.
func ValidVisitorID(id *VisitorID, locationHint string) *VisitorID {
	out := &VisitorID{}
	if id != nil {
		*out = *id
	}

	if out.TntID == "" && out.MarketingCloudVisitorID == "" &&
		AuthenticatedCustomerID(out) == "" && out.ThirdPartyID == "" {
		suffix := ""
		if locationHint != "" {
			suffix = fmt.Sprintf(".%s_0", locationHint)
		}
		out.TntID = uuid.NewString() + suffix
	}
	return out
}

// PrimaryID returns the first non-empty identifier, used as the stable seed
// for traffic allocation.
func PrimaryID(id *VisitorID) string {
	if id == nil {
		return ""
	}
	switch {
	case id.TntID != "":
		return id.TntID
	case id.MarketingCloudVisitorID != "":
		return id.MarketingCloudVisitorID
	case AuthenticatedCustomerID(id) != "":
		return AuthenticatedCustomerID(id)
	default:
		return id.ThirdPartyID
	}
}
