// Package callback encodes the typed actions carried in inline keyboard buttons.
// Telegram limits callback data to 64 bytes, so actions use short codes and a
// single argument.
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxDataLength is the Bot API limit on callback_data.
const MaxDataLength = 64

// ErrMalformed is returned for callback data that does not decode to a known action.
var ErrMalformed = errors.New("malformed callback data")

// Action identifies what a button press asks for.
type Action string

const (
	// subscriber
	SelectPlan   Action = "pl" // arg: <channelRef>:<days>:<pricePaise>
	ReportIssue  Action = "rp" // arg: channelRef
	CancelReport Action = "rx"

	// owner
	OwnerMenu          Action = "om"
	OwnerDashboard     Action = "od"
	OwnerAddChannel    Action = "oa"
	OwnerChannels      Action = "oc"
	OwnerHelp          Action = "oh" // arg: help section
	ManageChannel      Action = "mc" // arg: channelRef
	EditPlans          Action = "ep" // arg: channelRef
	ChannelLink        Action = "cl" // arg: channelRef
	RemoveChannel      Action = "rc" // arg: channelRef
	ConfirmRemove      Action = "cr" // arg: channelRef
	TransactionHistory Action = "th"
	WithdrawalHistory  Action = "wh"
	ChannelStats       Action = "cs"
	WithdrawStart      Action = "ws"
	WithdrawConfirm    Action = "wc"
	WithdrawCancel     Action = "wx"

	// admin
	AdminHelp              Action = "ah" // arg: help section
	AdminViewOwners        Action = "vo"
	AdminInspectOwner      Action = "io" // arg: ownerID
	AdminInspectChannel    Action = "ic" // arg: channelRef
	AdminBanOwner          Action = "bo" // arg: ownerID
	AdminApproveWithdrawal Action = "aw" // arg: withdrawalID
	AdminRejectWithdrawal  Action = "jw" // arg: withdrawalID
)

var known = map[Action]struct{}{
	SelectPlan: {}, ReportIssue: {}, CancelReport: {},
	OwnerMenu: {}, OwnerDashboard: {}, OwnerAddChannel: {}, OwnerChannels: {}, OwnerHelp: {},
	ManageChannel: {}, EditPlans: {}, ChannelLink: {}, RemoveChannel: {}, ConfirmRemove: {},
	TransactionHistory: {}, WithdrawalHistory: {}, ChannelStats: {},
	WithdrawStart: {}, WithdrawConfirm: {}, WithdrawCancel: {},
	AdminHelp: {}, AdminViewOwners: {}, AdminInspectOwner: {}, AdminInspectChannel: {}, AdminBanOwner: {},
	AdminApproveWithdrawal: {}, AdminRejectWithdrawal: {},
}

// Data is one decoded button press.
type Data struct {
	Action Action
	Arg    string
}

// New builds callback data for action with an optional argument.
func New(action Action, arg string) Data {
	return Data{Action: action, Arg: arg}
}

// Encode renders the wire form "<action>" or "<action>:<arg>".
func (d Data) Encode() string {
	if d.Arg == "" {
		return string(d.Action)
	}
	return string(d.Action) + ":" + d.Arg
}

// Decode parses wire data produced by Encode.
func Decode(raw string) (Data, error) {
	if raw == "" || len(raw) > MaxDataLength {
		return Data{}, ErrMalformed
	}
	action, arg, _ := strings.Cut(raw, ":")
	if _, ok := known[Action(action)]; !ok {
		return Data{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, action)
	}
	return Data{Action: Action(action), Arg: arg}, nil
}

// UUIDArg parses the argument as a UUID.
func (d Data) UUIDArg() (uuid.UUID, error) {
	id, err := uuid.Parse(d.Arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return id, nil
}

// Plan builds the data for a plan selection button.
func Plan(channelRef uuid.UUID, days int, pricePaise int64) Data {
	return Data{Action: SelectPlan, Arg: fmt.Sprintf("%s:%d:%d", channelRef, days, pricePaise)}
}

// PlanArg decodes the argument of a SelectPlan action.
func (d Data) PlanArg() (channelRef uuid.UUID, days int, pricePaise int64, err error) {
	parts := strings.Split(d.Arg, ":")
	if d.Action != SelectPlan || len(parts) != 3 {
		return uuid.Nil, 0, 0, ErrMalformed
	}
	if channelRef, err = uuid.Parse(parts[0]); err != nil {
		return uuid.Nil, 0, 0, ErrMalformed
	}
	if days, err = strconv.Atoi(parts[1]); err != nil || days <= 0 {
		return uuid.Nil, 0, 0, ErrMalformed
	}
	if pricePaise, err = strconv.ParseInt(parts[2], 10, 64); err != nil || pricePaise <= 0 {
		return uuid.Nil, 0, 0, ErrMalformed
	}
	return channelRef, days, pricePaise, nil
}

// Report builds the data for the post-purchase report button.
func Report(channelRef uuid.UUID) Data {
	return Data{Action: ReportIssue, Arg: channelRef.String()}
}
