package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdemRecordKeepsBinaryBody(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := encodeIdemRecord(middleware.IdempotencyRecord{
		Status:    200,
		Body:      []byte(`{"success":true,"payload":{"txHash":"0x01"}}`),
		CreatedAt: created,
	})

	rec, err := decodeIdemRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Status)
	assert.JSONEq(t, `{"success":true,"payload":{"txHash":"0x01"}}`, string(rec.Body))
	assert.True(t, rec.CreatedAt.Equal(created))
	assert.False(t, rec.Processing)

	_, err = decodeIdemRecord("not-json")
	assert.Error(t, err)
}

func TestFilterAuditEntries(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entry := func(id, client, action, txHash string, offset time.Duration) string {
		b, _ := json.Marshal(model.AuditLog{
			ID: id, ClientID: client, Action: action, TxHash: txHash, CreatedAt: base.Add(offset),
		})
		return string(b)
	}
	items := []string{
		entry("4", "c1", "execute_transaction", "0xAB04", 4*time.Hour),
		entry("3", "c2", "deploy_machine_smart_account", "0xab03", 3*time.Hour),
		"garbage",
		entry("2", "c1", "generate_storage_tx", "", 2*time.Hour),
		entry("1", "c1", "execute_transaction", "0xab01", time.Hour),
	}

	got := filterAuditEntries(items, model.AuditFilter{ClientID: "c1", Limit: 10})
	require.Len(t, got, 3)
	assert.Equal(t, "4", got[0].ID)

	from := base.Add(90 * time.Minute)
	to := base.Add(3 * time.Hour)
	got = filterAuditEntries(items, model.AuditFilter{From: &from, To: &to, Limit: 10})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"3", "2"}, []string{got[0].ID, got[1].ID})

	got = filterAuditEntries(items, model.AuditFilter{ClientID: "c1", Limit: 1})
	assert.Len(t, got, 1)

	got = filterAuditEntries(items, model.AuditFilter{Action: "execute_transaction", Limit: 10})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"4", "1"}, []string{got[0].ID, got[1].ID})

	got = filterAuditEntries(items, model.AuditFilter{TxHash: "0xab04", Limit: 10})
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].ID)
}

func TestClientRowToDomain(t *testing.T) {
	row := clientDB{
		ID:            "c1",
		Name:          "device-backend",
		ApiKey:        "key",
		QuotaJSON:     []byte(`{"max_daily_actions":25}`),
		RateLimitJSON: []byte(`{"qps":2.5,"burst":5}`),
	}
	c, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, 25, c.Quota.MaxDailyActions)
	assert.Equal(t, 2.5, c.Rate.QPS)
	assert.Equal(t, 5, c.Rate.Burst)

	row.QuotaJSON = []byte(`{`)
	_, err = row.toDomain()
	assert.Error(t, err)

	empty := clientDB{ID: "c2"}
	c, err = empty.toDomain()
	require.NoError(t, err)
	assert.Zero(t, c.Quota.MaxDailyActions)
}

func TestUsageKeyRollsOverDaily(t *testing.T) {
	repo := NewRedisUsageRepo(nil)
	assert.Equal(t, "usage:c1:"+time.Now().UTC().Format("2006-01-02"), repo.makeKey("c1"))
}

func TestAuditRowKeepsRelayColumns(t *testing.T) {
	entry := &model.AuditLog{
		ID:             "r1",
		ClientID:       "c1",
		Action:         "execute_machine_transaction",
		TxHash:         "0xABCDEF",
		MachineAddress: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
		Nonce:          18446744073709551615,
		Context:        map[string]interface{}{"error_code": "TRANSACTION_REVERTED"},
		CreatedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	row := newAuditRow(entry)
	assert.Equal(t, "0xabcdef", row.TxHash)

	got := row.toDomain()
	assert.Equal(t, entry.Action, got.Action)
	assert.Equal(t, "0xabcdef", got.TxHash)
	assert.Equal(t, entry.MachineAddress, got.MachineAddress)
	assert.Equal(t, entry.Nonce, got.Nonce)
	assert.Equal(t, "TRANSACTION_REVERTED", got.Context["error_code"])

	empty := newAuditRow(&model.AuditLog{ID: "r2"}).toDomain()
	assert.NotNil(t, empty.Context)
	assert.Zero(t, empty.Nonce)
}

func TestAuditListQueryFilters(t *testing.T) {
	query, args := auditListQuery(model.AuditFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Equal(t, []interface{}{100}, args)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	query, args = auditListQuery(model.AuditFilter{
		ClientID: "c1",
		Action:   "deploy_machine_smart_account",
		TxHash:   "0xAB",
		From:     &from,
		Limit:    5,
	})
	assert.Contains(t, query, "WHERE client_id = $1 AND action = $2 AND tx_hash = $3 AND created_at >= $4")
	assert.Contains(t, query, "LIMIT $5")
	assert.Equal(t, []interface{}{"c1", "deploy_machine_smart_account", "0xab", from, 5}, args)
}
