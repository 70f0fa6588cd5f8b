package bridge

import "errors"

var (
	// ErrBridgeUnavailable is returned for transfer operations while the
	// bridge is paused.
	ErrBridgeUnavailable = errors.New("bridge unavailable")

	// ErrBridgeAlreadyPaused is returned for a pause op on a paused bridge.
	ErrBridgeAlreadyPaused = errors.New("bridge already paused")

	// ErrBridgeNotPaused is returned for an unpause op on a running bridge.
	ErrBridgeNotPaused = errors.New("bridge not paused")

	// ErrUnexpectedChainID is returned for a governance message whose source
	// chain is not the chain this bridge serves.
	ErrUnexpectedChainID = errors.New("unexpected chain id")

	// ErrInvalidSequenceNumber is returned for a governance message whose
	// sequence number is not the next expected one for its type.
	ErrInvalidSequenceNumber = errors.New("invalid sequence number")

	// ErrInsufficientSignatures is returned when a signature set verifies but
	// its summed stake is below the quorum threshold.
	ErrInsufficientSignatures = errors.New("insufficient signatures for quorum")

	// ErrUnexpectedMessageType is returned when a message is submitted
	// through the wrong entry point, e.g. a token transfer to the governance
	// processor.
	ErrUnexpectedMessageType = errors.New("unexpected message type")
)
