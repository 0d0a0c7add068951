package casper

import (
	"fmt"

	"github.com/pkg/errors"
)

// Result is the closed set of reasons a finalization operation is rejected.
type Result uint8

const (
	Success Result = iota
	InitWrongEpoch
	AdminNotAuthorized
	DepositInsufficient
	DepositAlreadyValidator
	VoteAlreadyVoted
	VoteWrongTargetHash
	VoteWrongTargetEpoch
	VoteSrcEpochNotJustified
	VoteNotVotable
	VoteNotByValidator
	LogoutAlreadyDone
	LogoutNotAValidator
	LogoutNotYetAValidator
	WithdrawTooEarly
	WithdrawNotAValidator
	WithdrawAlreadyDone
	WithdrawWrongAmount
	SlashNotSameValidator
	SlashNotValidator
	SlashSameVote
	SlashAlreadySlashed
	SlashNotValid
)

var resultNames = [...]string{
	Success:                  "SUCCESS",
	InitWrongEpoch:           "INIT_WRONG_EPOCH",
	AdminNotAuthorized:       "ADMIN_NOT_AUTHORIZED",
	DepositInsufficient:      "DEPOSIT_INSUFFICIENT",
	DepositAlreadyValidator:  "DEPOSIT_ALREADY_VALIDATOR",
	VoteAlreadyVoted:         "VOTE_ALREADY_VOTED",
	VoteWrongTargetHash:      "VOTE_WRONG_TARGET_HASH",
	VoteWrongTargetEpoch:     "VOTE_WRONG_TARGET_EPOCH",
	VoteSrcEpochNotJustified: "VOTE_SRC_EPOCH_NOT_JUSTIFIED",
	VoteNotVotable:           "VOTE_NOT_VOTABLE",
	VoteNotByValidator:       "VOTE_NOT_BY_VALIDATOR",
	LogoutAlreadyDone:        "LOGOUT_ALREADY_DONE",
	LogoutNotAValidator:      "LOGOUT_NOT_A_VALIDATOR",
	LogoutNotYetAValidator:   "LOGOUT_NOT_YET_A_VALIDATOR",
	WithdrawTooEarly:         "WITHDRAW_TOO_EARLY",
	WithdrawNotAValidator:    "WITHDRAW_NOT_A_VALIDATOR",
	WithdrawAlreadyDone:      "WITHDRAW_ALREADY_DONE",
	WithdrawWrongAmount:      "WITHDRAW_WRONG_AMOUNT",
	SlashNotSameValidator:    "SLASH_NOT_SAME_VALIDATOR",
	SlashNotValidator:        "SLASH_NOT_VALIDATOR",
	SlashSameVote:            "SLASH_SAME_VOTE",
	SlashAlreadySlashed:      "SLASH_ALREADY_SLASHED",
	SlashNotValid:            "SLASH_NOT_VALID",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

// Error makes a Result usable as the target of errors.Is.
func (r Result) Error() string {
	return r.String()
}

// ValidationError is returned by the Validate family. The offending
// operation must be rejected, the state is left untouched.
type ValidationError struct {
	Result Result
	detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Result, e.detail)
}

// Unwrap exposes the reason, so errors.Is(err, casper.VoteAlreadyVoted) holds.
func (e *ValidationError) Unwrap() error {
	return e.Result
}

func fail(r Result, format string, args ...interface{}) error {
	err := &ValidationError{Result: r, detail: fmt.Sprintf(format, args...)}
	log.WithField("result", r).Debug(err.detail)
	return err
}

// ResultOf extracts the reason from an error returned by a Validate call.
// ok is false for errors that are not validation failures.
func ResultOf(err error) (r Result, ok bool) {
	if err == nil {
		return Success, true
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Result, true
	}
	return 0, false
}
