package request

import (
	"context"

	"github.com/google/uuid"
)

// GeoResolver resolves a raw geo hint (usually just an IP address) into a
// full geo record. Implementations may retry or validate internally.
type GeoResolver interface {
	ResolveGeo(ctx context.Context, geo *Geo) (*Geo, error)
}

// GeoResolverFunc adapts a function to the GeoResolver interface.
type GeoResolverFunc func(ctx context.Context, geo *Geo) (*Geo, error)

func (f GeoResolverFunc) ResolveGeo(ctx context.Context, geo *Geo) (*Geo, error) {
	return f(ctx, geo)
}

// PassthroughGeoResolver returns the raw geo hint unchanged.
func PassthroughGeoResolver() GeoResolver {
	return GeoResolverFunc(func(_ context.Context, geo *Geo) (*Geo, error) {
		return geo, nil
	})
}

// ValidDeliveryRequest returns a copy of req with resolved geo merged in, a
// validated visitor id, and a guaranteed request id. The input is never
// mutated.
func ValidDeliveryRequest(ctx context.Context, req *DeliveryRequest, locationHint string, resolver GeoResolver) (*DeliveryRequest, error) {
	out := &DeliveryRequest{}
	if req != nil {
		*out = *req
	}

	rawCtx := RequestContext{}
	if out.Context != nil {
		rawCtx = *out.Context
	}
	if resolver != nil {
		geo, err := resolver.ResolveGeo(ctx, rawCtx.Geo)
		if err != nil {
			return nil, err
		}
		rawCtx.Geo = geo
	}
	out.Context = &rawCtx

	out.ID = ValidVisitorID(out.ID, locationHint)
	if out.RequestID == "" {
		out.RequestID = uuid.NewString()
	}
	return out, nil
}
