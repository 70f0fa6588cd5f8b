package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chainsafe/bridge-core/pkg/bridge"
	"github.com/chainsafe/bridge-core/pkg/chain"
	"github.com/chainsafe/bridge-core/pkg/keys"
	"github.com/chainsafe/bridge-core/pkg/message"
	"github.com/chainsafe/bridge-core/pkg/treasury"
)

type apiFixture struct {
	server  *httptest.Server
	keypair *keys.ValidatorKeyPair
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	kp, err := keys.Generate()
	require.NoError(t, err)
	addr, err := kp.Address()
	require.NoError(t, err)

	core, err := bridge.NewCore(bridge.Genesis{
		ChainID:     uint8(chain.NativeMainnet),
		LimitWindow: 24 * time.Hour,
		Members: []bridge.GenesisMember{
			{Address: addr.Hex(), PublicKey: kp.PublicKeyHex(), Stake: 10_000},
		},
		Tokens: []bridge.GenesisToken{
			{ID: treasury.TokenBTC, Symbol: "BTC", Decimals: 0, Price: 100, TypeDescriptor: "0xbtc::btc::BTC"},
		},
		RouteLimits: []bridge.GenesisRouteLimit{
			{SendingChain: uint8(chain.NativeMainnet), ReceivingChain: uint8(chain.EthMainnet), Limit: 1_000_000},
		},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	server := httptest.NewServer(NewHandler(core, zaptest.NewLogger(t)).Router())
	t.Cleanup(server.Close)
	return &apiFixture{server: server, keypair: kp}
}

func (f *apiFixture) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func testTransfer(seq uint64) message.Message {
	return message.NewTokenTransfer(chain.NativeMainnet, seq, message.TokenTransfer{
		Sender:        common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes(),
		TargetChain:   chain.EthMainnet,
		TargetAddress: common.HexToAddress("0x2222222222222222222222222222222222222222").Bytes(),
		TokenID:       treasury.TokenBTC,
		Amount:        5,
	})
}

func encodeHex(m message.Message) string {
	return "0x" + hex.EncodeToString(message.Encode(m))
}

func (f *apiFixture) signHex(t *testing.T, m message.Message) []string {
	t.Helper()
	sig, err := f.keypair.SignDigest(message.Digest(m).Bytes())
	require.NoError(t, err)
	return []string{"0x" + hex.EncodeToString(sig)}
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestSubmitTransfer(t *testing.T) {
	f := newAPIFixture(t)
	m := testTransfer(0)

	resp := f.post(t, "/api/v1/transfers", submitMessageRequest{Message: encodeHex(m)})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "pending", body["status"])

	t.Run("duplicate is a conflict", func(t *testing.T) {
		resp := f.post(t, "/api/v1/transfers", submitMessageRequest{Message: encodeHex(m)})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("zero amount is a bad request", func(t *testing.T) {
		zero := testTransfer(1)
		zeroTransfer, err := zero.TokenTransfer()
		require.NoError(t, err)
		zeroTransfer.Amount = 0
		zero.Payload = zeroTransfer.Encode()
		resp := f.post(t, "/api/v1/transfers", submitMessageRequest{Message: encodeHex(zero)})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("garbage hex is a bad request", func(t *testing.T) {
		resp := f.post(t, "/api/v1/transfers", submitMessageRequest{Message: "0xzz"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTransferLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	m := testTransfer(0)

	resp := f.post(t, "/api/v1/transfers", submitMessageRequest{Message: encodeHex(m)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	base := fmt.Sprintf("/api/v1/transfers/%d/%d", uint8(chain.NativeMainnet), 0)

	resp = f.post(t, base+"/signatures", attachSignaturesRequest{Signatures: f.signHex(t, m)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "approved", decodeBody(t, resp)["status"])

	resp = f.post(t, base+"/claim", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "claimed", decodeBody(t, resp)["status"])

	resp = f.get(t, base)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "claimed", body["status"])
	assert.Equal(t, float64(5), body["amount"])

	t.Run("unknown transfer is 404", func(t *testing.T) {
		resp := f.get(t, fmt.Sprintf("/api/v1/transfers/%d/%d", uint8(chain.NativeMainnet), 42))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad chain segment is 400", func(t *testing.T) {
		resp := f.get(t, "/api/v1/transfers/999/0")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSubmitGovernance(t *testing.T) {
	f := newAPIFixture(t)
	m := message.NewUpdateAssetPrice(chain.NativeMainnet, 0, message.UpdateAssetPrice{
		TokenID: treasury.TokenBTC, NewPrice: 250,
	})

	resp := f.post(t, "/api/v1/messages", submitMessageRequest{
		Message:    encodeHex(m),
		Signatures: f.signHex(t, m),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeBody(t, resp)["next_seq"])

	t.Run("replay is a conflict", func(t *testing.T) {
		resp := f.post(t, "/api/v1/messages", submitMessageRequest{
			Message:    encodeHex(m),
			Signatures: f.signHex(t, m),
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unsigned governance is a bad request", func(t *testing.T) {
		next := message.NewUpdateAssetPrice(chain.NativeMainnet, 1, message.UpdateAssetPrice{
			TokenID: treasury.TokenBTC, NewPrice: 300,
		})
		resp := f.post(t, "/api/v1/messages", submitMessageRequest{Message: encodeHex(next)})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPausedBridgeLocksTransfers(t *testing.T) {
	f := newAPIFixture(t)
	pause := message.NewEmergencyOp(chain.NativeMainnet, 0, message.EmergencyOp{Action: message.EmergencyPause})

	resp := f.post(t, "/api/v1/messages", submitMessageRequest{
		Message:    encodeHex(pause),
		Signatures: f.signHex(t, pause),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/api/v1/transfers", submitMessageRequest{Message: encodeHex(testTransfer(0))})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp = f.get(t, "/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["paused"])
}

func TestReadEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.get(t, "/api/v1/committee")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members := decodeBody(t, resp)["members"].([]interface{})
	assert.Len(t, members, 1)

	resp = f.get(t, "/api/v1/assets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assets := decodeBody(t, resp)["assets"].([]interface{})
	assert.Len(t, assets, 1)

	resp = f.get(t, "/api/v1/limits")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	limits := decodeBody(t, resp)["limits"].([]interface{})
	assert.Len(t, limits, 1)

	resp = f.get(t, "/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, chain.NativeMainnet.String(), body["chain"])
	assert.Equal(t, false, body["paused"])
}
