package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/clubdesk/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   map[string]interface{} `json:"error"`
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.BodyLimitKB = 64
	cfg.Settlement = config.SettlementConfig{
		ReceiptPrefix:  "COMP",
		LockTTL:        10 * time.Second,
		LockWait:       10 * time.Second,
		IdempotencyTTL: time.Hour,
		ReceiptTTL:     time.Hour,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}
	return cfg
}

func TestGoldenPath(t *testing.T) {
	// 1. Setup Infrastructure
	client, db, cleanupDB := SetupTestDB(t)
	defer cleanupDB()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	// 2. Initialize App
	app, err := NewApp(AppDependencies{
		Config:      testConfig(),
		MongoClient: client,
		MongoDB:     db,
		RedisClient: redisClient,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)

	request := func(method, path string, body interface{}, headers map[string]string) (int, envelope) {
		var bodyReader io.Reader
		if body != nil {
			jsonBytes, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(jsonBytes)
		}
		req, _ := http.NewRequest(method, path, bodyReader)
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		var out envelope
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	// ==========================================
	// STEP 1: Catalog and directory
	// ==========================================
	status, body := request("POST", "/v1/plans", map[string]interface{}{
		"name": "Monthly", "price": 29990, "duration_days": 30,
	}, nil)
	require.Equal(t, 201, status)
	planID := int64(body.Data["id"].(float64))

	status, body = request("POST", "/v1/plans", map[string]interface{}{
		"name": "Legacy", "price": 9990, "duration_days": 30, "is_active": false,
	}, nil)
	require.Equal(t, 201, status)
	inactivePlanID := int64(body.Data["id"].(float64))

	status, body = request("POST", "/v1/members", map[string]interface{}{
		"first_name": "Ana", "last_name": "Soto", "email": "ana@example.com",
	}, nil)
	require.Equal(t, 201, status)
	memberID := int64(body.Data["id"].(float64))

	status, body = request("POST", "/v1/members", map[string]interface{}{
		"first_name": "Luis", "last_name": "Pérez",
	}, nil)
	require.Equal(t, 201, status)
	otherMemberID := int64(body.Data["id"].(float64))

	// ==========================================
	// STEP 2: Rejections mutate nothing
	// ==========================================
	status, body = request("POST", "/v1/settlements", map[string]interface{}{"member_id": memberID, "plan_id": 999, "method": "Cash"}, nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "PlanNotFound", body.Error["code"])

	status, body = request("POST", "/v1/settlements", map[string]interface{}{"member_id": memberID, "plan_id": inactivePlanID, "method": "Cash"}, nil)
	assert.Equal(t, 422, status)
	assert.Equal(t, "PlanInactive", body.Error["code"])

	status, body = request("POST", "/v1/settlements", map[string]interface{}{"member_id": 999, "plan_id": planID, "method": "Cash"}, nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "MemberNotFound", body.Error["code"])

	status, body = request("POST", "/v1/settlements", map[string]interface{}{"member_id": memberID, "plan_id": planID, "method": "Crypto"}, nil)
	assert.Equal(t, 400, status)
	assert.Equal(t, "InvalidMethod", body.Error["code"])

	status, body = request("GET", "/v1/payments", nil, nil)
	require.Equal(t, 200, status)
	count, err := db.Collection("memberships").CountDocuments(t.Context(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Zero(t, count)

	// ==========================================
	// STEP 3: Settle
	// ==========================================
	status, body = request("POST", "/v1/settlements", map[string]interface{}{
		"member_id": memberID, "plan_id": planID, "method": "Cash",
	}, map[string]string{"Idempotency-Key": "golden-1"})
	require.Equal(t, 201, status)
	assert.Equal(t, float64(29990), body.Data["amount"])
	paymentID := int64(body.Data["payment_id"].(float64))
	receiptNumber := body.Data["receipt_number"].(string)
	assert.Equal(t, "COMP-00000001", receiptNumber)

	// retried request is replayed
	status, body = request("POST", "/v1/settlements", map[string]interface{}{
		"member_id": memberID, "plan_id": planID, "method": "Cash",
	}, map[string]string{"Idempotency-Key": "golden-1"})
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(paymentID), body.Data["payment_id"])

	// the same key for another member is refused, not answered with Ana's settlement
	status, body = request("POST", "/v1/settlements", map[string]interface{}{
		"member_id": otherMemberID, "plan_id": planID, "method": "Cash",
	}, map[string]string{"Idempotency-Key": "golden-1"})
	assert.Equal(t, 422, status)
	assert.Equal(t, "IdempotencyKeyReused", body.Error["code"])
	assert.Nil(t, body.Data)

	otherPayments, err := db.Collection("payments").CountDocuments(t.Context(), map[string]interface{}{"member_id": otherMemberID})
	require.NoError(t, err)
	assert.Zero(t, otherPayments)

	// ==========================================
	// STEP 4: Receipt query
	// ==========================================
	status, body = request("GET", fmt.Sprintf("/v1/receipts/payment/%d", paymentID), nil, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "Ana", body.Data["member_first_name"])
	assert.Equal(t, "Soto", body.Data["member_last_name"])
	assert.Equal(t, "Monthly", body.Data["plan_name"])
	assert.Equal(t, float64(29990), body.Data["amount"])
	assert.Equal(t, receiptNumber, body.Data["receipt_number"])

	status, body = request("GET", "/v1/receipts/payment/424242", nil, nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, "ReceiptNotFound", body.Error["code"])

	// ==========================================
	// STEP 5: Concurrent settlements for the same member
	// ==========================================
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := request("POST", "/v1/settlements", map[string]interface{}{
				"member_id": memberID, "plan_id": planID, "method": "Card",
			}, nil)
			assert.Contains(t, []int{201, 409}, status)
		}()
	}
	wg.Wait()

	active, err := db.Collection("memberships").CountDocuments(t.Context(), map[string]interface{}{
		"member_id": memberID, "status": "Active",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	status, body = request("GET", fmt.Sprintf("/v1/members/%d/membership", memberID), nil, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "Active", body.Data["status"])

	receipts, err := db.Collection("receipts").Distinct(t.Context(), "number", map[string]interface{}{})
	require.NoError(t, err)
	total, err := db.Collection("receipts").CountDocuments(t.Context(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, total, int64(len(receipts)), "receipt numbers must be unique")
}
