package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, prometheus.DefaultRegisterer, Registry)
}

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("success"))
	processedBefore := testutil.ToFloat64(CampaignsProcessed)

	ObserveRun("success", 137, 2*time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("success")))
	assert.Equal(t, processedBefore+137, testutil.ToFloat64(CampaignsProcessed))
}

func TestObserveWarehouse(t *testing.T) {
	okBefore := testutil.ToFloat64(WarehouseOperations.WithLabelValues("append", "ok"))
	errBefore := testutil.ToFloat64(WarehouseOperations.WithLabelValues("append", "error"))

	ObserveWarehouse("append", nil)
	ObserveWarehouse("append", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(WarehouseOperations.WithLabelValues("append", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(WarehouseOperations.WithLabelValues("append", "error")))
}

func TestObserveAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("campaigns", "200"))
	ObserveAPIRequest("campaigns", 200)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("campaigns", "200")))
}
