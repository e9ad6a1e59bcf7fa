package bridge

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/holtech/isbridge/pkg/auth"
	"github.com/holtech/isbridge/pkg/hooks"
)

// DefaultLinkText is used when the auth link is requested without text.
const DefaultLinkText = "Click here to authorized"

// detailsAlert is rendered while the client id or secret is unset.
const detailsAlert = "Enter your Infusionsoft App details below to proceed."

// LinkArgs describes the element rendered by AuthLink.
type LinkArgs struct {
	// Element is the tag name, "a" when empty.
	Element string
	Classes []string
}

// CodeArgs carries an inbound authorization callback.
type CodeArgs struct {
	Session auth.Session
	Code    string
}

// ContactArgs selects a contact and its fields.
type ContactArgs struct {
	ID     int64
	Fields []string
}

// Host events. Names match the hooks the host templates already call.
var (
	// AuthLink turns link text into authorization link markup, or "" when
	// the credentials are not configured.
	AuthLink = hooks.NewFilter[string, LinkArgs]("is_auth_link")

	// IsAuthed resolves to whether a usable token is stored.
	IsAuthed = hooks.NewFilter[bool, struct{}]("is_is_authed")

	// DetailsCheck turns an element name into the "enter your details"
	// banner, or "" once the client id and secret are set.
	DetailsCheck = hooks.NewFilter[string, struct{}]("is_details_check")

	// ProcessRequestCode fires once per authorization callback.
	ProcessRequestCode = hooks.NewAction[CodeArgs]("process_request_code")

	// GetContacts loads a contact from the CRM API.
	GetContacts = hooks.NewFilter[map[string]any, ContactArgs]("get_inf_contacts")
)

// registerHooks wires the bridge into bus.
func (b *Bridge) registerHooks() {
	hooks.OnFilter(b.bus, AuthLink, b.authLink)
	hooks.OnFilter(b.bus, IsAuthed, b.isAuthed)
	hooks.OnFilter(b.bus, DetailsCheck, b.detailsCheck)
	hooks.On(b.bus, ProcessRequestCode, b.processRequestCode)
	hooks.OnFilter(b.bus, GetContacts, b.getContacts)
}

func (b *Bridge) authLink(_ context.Context, text string, args LinkArgs) (string, error) {
	url, ok := b.Manager().AuthorizationURL()
	if !ok {
		return "", nil
	}

	if text == "" {
		text = DefaultLinkText
	}
	elem := args.Element
	if elem == "" {
		elem = "a"
	}

	return fmt.Sprintf(`<%s class="%s" href="%s">%s</%s>`,
		html.EscapeString(elem),
		html.EscapeString(strings.Join(args.Classes, " ")),
		html.EscapeString(url),
		html.EscapeString(text),
		html.EscapeString(elem),
	), nil
}

func (b *Bridge) isAuthed(ctx context.Context, _ bool, _ struct{}) (bool, error) {
	return b.Manager().IsAuthorized(ctx), nil
}

func (b *Bridge) detailsCheck(_ context.Context, elem string, _ struct{}) (string, error) {
	if !b.Credentials().NeedsDetails() {
		return "", nil
	}

	elem = html.EscapeString(elem)
	return fmt.Sprintf(`<%s id="is_details_alert">%s</%s>`, elem, detailsAlert, elem), nil
}

func (b *Bridge) processRequestCode(ctx context.Context, args CodeArgs) error {
	return b.Manager().ExchangeCode(ctx, args.Session, args.Code)
}

func (b *Bridge) getContacts(ctx context.Context, _ map[string]any, args ContactArgs) (map[string]any, error) {
	return b.contacts.Load(ctx, args.ID, args.Fields)
}
