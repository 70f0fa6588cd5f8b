// Package api exposes the bridge core over HTTP: message submission,
// transfer lifecycle operations, and read-only state queries.
package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/bridge-core/pkg/app/errors"
	apphttp "github.com/chainsafe/bridge-core/pkg/app/http"
	"github.com/chainsafe/bridge-core/pkg/bridge"
	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/committee"
	"github.com/chainsafe/bridge-core/pkg/ledger"
	"github.com/chainsafe/bridge-core/pkg/limiter"
	"github.com/chainsafe/bridge-core/pkg/message"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

// Service is the part of the bridge core the API depends on.
type Service interface {
	RecordTransfer(m message.Message) error
	AttachSignatures(key ledger.Key, signatures [][]byte) error
	MarkClaimed(key ledger.Key) error
	ProcessGovernance(m message.Message, signatures [][]byte) error

	ChainID() chain.ID
	IsPaused() bool
	Status(sourceChain chain.ID, seqNum uint64) ledger.Status
	Transfer(sourceChain chain.ID, seqNum uint64) (ledger.Record, bool)
	RouteLimits() []limiter.RouteLimit
	CommitteeMembers() []committee.Member
	Assets() []treasury.Asset
	SequenceNum(t message.Type) uint64
}

// Handler serves the bridge HTTP API.
type Handler struct {
	service Service
	log     *zap.Logger
}

// NewHandler creates an API handler over the given service.
func NewHandler(service Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

// Router builds the chi router with all API routes mounted.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", apphttp.HandleError(h.submitGovernance))
		r.Post("/transfers", apphttp.HandleError(h.submitTransfer))
		r.Route("/transfers/{chain}/{seq}", func(r chi.Router) {
			r.Get("/", apphttp.HandleError(h.getTransfer))
			r.Post("/signatures", apphttp.HandleError(h.attachSignatures))
			r.Post("/claim", apphttp.HandleError(h.markClaimed))
		})
		r.Get("/status", apphttp.HandleError(h.getStatus))
		r.Get("/committee", apphttp.HandleError(h.getCommittee))
		r.Get("/assets", apphttp.HandleError(h.getAssets))
		r.Get("/limits", apphttp.HandleError(h.getLimits))
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitMessageRequest struct {
	Message    string   `json:"message"`    // hex-encoded envelope
	Signatures []string `json:"signatures"` // hex-encoded 65-byte signatures
}

func (h *Handler) submitTransfer(w http.ResponseWriter, r *http.Request) error {
	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	m, err := decodeMessage(req.Message)
	if err != nil {
		return err
	}
	if err := h.service.RecordTransfer(m); err != nil {
		return mapDomainError(err)
	}
	writeJSON(w, http.StatusCreated, transferResponse(m.SourceChain, m.SeqNum, h.service))
	return nil
}

func (h *Handler) submitGovernance(w http.ResponseWriter, r *http.Request) error {
	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	m, err := decodeMessage(req.Message)
	if err != nil {
		return err
	}
	sigs, err := decodeSignatures(req.Signatures)
	if err != nil {
		return err
	}
	if err := h.service.ProcessGovernance(m, sigs); err != nil {
		return mapDomainError(err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":     m.Type.String(),
		"seq_num":  m.SeqNum,
		"next_seq": h.service.SequenceNum(m.Type),
	})
	return nil
}

type attachSignaturesRequest struct {
	Signatures []string `json:"signatures"`
}

func (h *Handler) attachSignatures(w http.ResponseWriter, r *http.Request) error {
	key, err := transferKey(r)
	if err != nil {
		return err
	}
	var req attachSignaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	sigs, err := decodeSignatures(req.Signatures)
	if err != nil {
		return err
	}
	if err := h.service.AttachSignatures(key, sigs); err != nil {
		return mapDomainError(err)
	}
	writeJSON(w, http.StatusOK, transferResponse(key.SourceChain, key.SeqNum, h.service))
	return nil
}

func (h *Handler) markClaimed(w http.ResponseWriter, r *http.Request) error {
	key, err := transferKey(r)
	if err != nil {
		return err
	}
	if err := h.service.MarkClaimed(key); err != nil {
		return mapDomainError(err)
	}
	writeJSON(w, http.StatusOK, transferResponse(key.SourceChain, key.SeqNum, h.service))
	return nil
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) error {
	key, err := transferKey(r)
	if err != nil {
		return err
	}
	record, ok := h.service.Transfer(key.SourceChain, key.SeqNum)
	if !ok {
		return apperrors.ResourceNotFoundError(nil, "transfer not found")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source_chain":      record.Message.SourceChain.String(),
		"seq_num":           record.Message.SeqNum,
		"status":            record.Status().String(),
		"sender":            "0x" + hex.EncodeToString(record.Transfer.Sender),
		"recipient":         "0x" + hex.EncodeToString(record.Transfer.TargetAddress),
		"destination_chain": record.Transfer.TargetChain.String(),
		"token_id":          record.Transfer.TokenID,
		"amount":            record.Transfer.Amount,
		"signature_count":   len(record.Signatures),
	})
	return nil
}

func (h *Handler) getStatus(w http.ResponseWriter, _ *http.Request) error {
	seqs := make(map[string]uint64)
	for _, t := range message.Types() {
		seqs[t.String()] = h.service.SequenceNum(t)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chain":         h.service.ChainID().String(),
		"paused":        h.service.IsPaused(),
		"sequence_nums": seqs,
	})
	return nil
}

func (h *Handler) getCommittee(w http.ResponseWriter, _ *http.Request) error {
	members := h.service.CommitteeMembers()
	out := make([]map[string]interface{}, 0, len(members))
	for _, m := range members {
		out = append(out, map[string]interface{}{
			"address":      m.Address.Hex(),
			"public_key":   hex.EncodeToString(m.PublicKey),
			"stake":        m.Stake,
			"metadata_url": m.MetadataURL,
			"blocklisted":  m.Blocklisted,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": out})
	return nil
}

func (h *Handler) getAssets(w http.ResponseWriter, _ *http.Request) error {
	assets := h.service.Assets()
	out := make([]map[string]interface{}, 0, len(assets))
	for _, a := range assets {
		out = append(out, map[string]interface{}{
			"token_id":        a.ID,
			"symbol":          a.Symbol,
			"decimals":        a.Decimals,
			"price":           a.Price,
			"native":          a.Native,
			"type_descriptor": a.TypeDescriptor,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": out})
	return nil
}

func (h *Handler) getLimits(w http.ResponseWriter, _ *http.Request) error {
	limits := h.service.RouteLimits()
	out := make([]map[string]interface{}, 0, len(limits))
	for _, rl := range limits {
		out = append(out, map[string]interface{}{
			"route":        rl.Route.String(),
			"cap":          rl.Cap,
			"window_start": rl.WindowStart,
			"accumulated":  rl.Accumulated.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"limits": out})
	return nil
}

func transferResponse(sourceChain chain.ID, seqNum uint64, service Service) map[string]interface{} {
	return map[string]interface{}{
		"source_chain": sourceChain.String(),
		"seq_num":      seqNum,
		"status":       service.Status(sourceChain, seqNum).String(),
	}
}

// transferKey parses the {chain}/{seq} URL segments.
func transferKey(r *http.Request) (ledger.Key, error) {
	chainParam := chi.URLParam(r, "chain")
	chainByte, err := strconv.ParseUint(chainParam, 10, 8)
	if err != nil {
		return ledger.Key{}, apperrors.BadRequestError(err, "invalid chain id")
	}
	sourceChain, err := chain.FromByte(uint8(chainByte))
	if err != nil {
		return ledger.Key{}, apperrors.BadRequestError(err, "unknown chain id")
	}
	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		return ledger.Key{}, apperrors.BadRequestError(err, "invalid sequence number")
	}
	return ledger.Key{SourceChain: sourceChain, SeqNum: seq}, nil
}

func decodeMessage(encoded string) (message.Message, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		return message.Message{}, apperrors.BadRequestError(err, "message is not valid hex")
	}
	m, err := message.Decode(raw)
	if err != nil {
		return message.Message{}, apperrors.BadRequestError(err, err.Error())
	}
	return m, nil
}

func decodeSignatures(encoded []string) ([][]byte, error) {
	sigs := make([][]byte, 0, len(encoded))
	for i, s := range encoded {
		raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, apperrors.BadRequestError(err, fmt.Sprintf("signature %d is not valid hex", i))
		}
		sigs = append(sigs, raw)
	}
	return sigs, nil
}

// mapDomainError translates core errors into service errors with the right
// HTTP status.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrTransferNotFound):
		return apperrors.ResourceNotFoundError(err, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransfer),
		errors.Is(err, ledger.ErrTransferClaimed),
		errors.Is(err, bridge.ErrInvalidSequenceNumber):
		return apperrors.ConflictError(err, err.Error())
	case errors.Is(err, bridge.ErrBridgeUnavailable),
		errors.Is(err, limiter.ErrLimitExceeded):
		return apperrors.LockedError(err, err.Error())
	case errors.Is(err, ledger.ErrZeroValue),
		errors.Is(err, ledger.ErrInvalidEVMAddress),
		errors.Is(err, ledger.ErrTransferNotApproved),
		errors.Is(err, chain.ErrInvalidRoute),
		errors.Is(err, chain.ErrUnknownChain),
		errors.Is(err, message.ErrMalformedMessage),
		errors.Is(err, treasury.ErrUnsupportedToken),
		errors.Is(err, treasury.ErrInvalidNotionalPrice),
		errors.Is(err, limiter.ErrLimitNotConfigured),
		errors.Is(err, bridge.ErrUnexpectedChainID),
		errors.Is(err, bridge.ErrUnexpectedMessageType),
		errors.Is(err, bridge.ErrInsufficientSignatures),
		errors.Is(err, bridge.ErrBridgeAlreadyPaused),
		errors.Is(err, bridge.ErrBridgeNotPaused),
		errors.Is(err, committee.ErrRecoverFailed),
		errors.Is(err, committee.ErrSignerNotInCommittee),
		errors.Is(err, committee.ErrDuplicateSigner):
		return apperrors.BadRequestError(err, err.Error())
	default:
		return apperrors.GeneralError(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
