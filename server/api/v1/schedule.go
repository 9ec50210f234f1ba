package v1

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/dto"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/level"
	"github.com/zintix-labs/slot666/sdk/risk"
)

const (
	defaultTableMax = 20
	maxTableMax     = 1000
)

type riskResponse struct {
	Level   int     `json:"level"`
	Percent float64 `json:"percent"`
}

type riskTableResponse struct {
	SafeLevels int          `json:"safe_levels"`
	CapPercent float64      `json:"cap_percent"`
	Table      []risk.Entry `json:"table"`
}

type levelsResponse struct {
	SpinsPerLevel      int           `json:"spins_per_level"`
	DiscountPercent    string        `json:"discount_percent"`
	MaxDiscountPercent int           `json:"max_discount_percent"`
	Table              []level.Entry `json:"table"`
}

// Risk GET /v1/risk?level=
func (h *Handler) Risk(w http.ResponseWriter, r *http.Request) {
	lv, err := dto.QueryInt(r.URL.Query().Get("level"), "level", 1)
	if err != nil {
		h.fail(w, "risk", err)
		return
	}
	p, err := h.rt.Engine().Risk().Probability(lv)
	if err != nil {
		h.fail(w, "risk", err)
		return
	}
	h.writeJSON(w, http.StatusOK, riskResponse{Level: lv, Percent: p})
}

// RiskTable GET /v1/risk/table?max=
func (h *Handler) RiskTable(w http.ResponseWriter, r *http.Request) {
	n, err := tableMax(r)
	if err != nil {
		h.fail(w, "risk table", err)
		return
	}
	rc := h.rt.Engine().Risk()
	h.writeJSON(w, http.StatusOK, riskTableResponse{
		SafeLevels: rc.SafeLevels(),
		CapPercent: rc.CapPercent(),
		Table:      rc.Table(n),
	})
}

// Levels GET /v1/levels?max=&discount=
//
// discount 為門檻折扣百分比，會被限制在 [0, max_discount_percent]。
func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	n, err := tableMax(r)
	if err != nil {
		h.fail(w, "levels", err)
		return
	}
	pct := decimal.Zero
	if s := r.URL.Query().Get("discount"); s != "" {
		if pct, err = decimal.NewFromString(s); err != nil {
			h.fail(w, "levels", errs.Malformed("invalid discount: %v", err))
			return
		}
	}
	eng := h.rt.Engine()
	ls := eng.Levels()
	h.writeJSON(w, http.StatusOK, levelsResponse{
		SpinsPerLevel:      eng.SpinsPerLevel(),
		DiscountPercent:    pct.String(),
		MaxDiscountPercent: ls.MaxDiscountPercent(),
		Table:              ls.Table(n, pct),
	})
}

// Items GET /v1/items
func (h *Handler) Items(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.NewItemDTOs(h.rt.Catalog().All()))
}

// Metrics GET /v1/metrics
func (h *Handler) Metrics(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.rt.Metrics())
}

func tableMax(r *http.Request) (int, error) {
	n, err := dto.QueryInt(r.URL.Query().Get("max"), "max", defaultTableMax)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > maxTableMax {
		return 0, errs.Malformed("max must be between 1 and %d, got %d", maxTableMax, n)
	}
	return n, nil
}
