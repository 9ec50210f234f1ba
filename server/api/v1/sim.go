package v1

import (
	"net/http"

	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/dto"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/stats"
)

type simResponse struct {
	Report   *stats.SimReport `json:"report"`
	UsedTime int64            `json:"used_ms"`
}

// Sim GET|POST /v1/sim
//
// 以 Runtime 的 Engine 跑離線模擬，不寫入 ledger；請求中斷時停止派發。
func (h *Handler) Sim(w http.ResponseWriter, r *http.Request) {
	raw, err := dto.DecodeSimRequest(r)
	if err != nil {
		h.fail(w, "sim", err)
		return
	}
	req, err := raw.Parse(h.rt.Catalog(), h.lim)
	if err != nil {
		h.fail(w, "sim", err)
		return
	}

	eng := h.rt.Engine()
	var sim *slot666.Simulator
	if raw.Seed != nil {
		sim = eng.NewSimulatorWithSeed(*raw.Seed)
	} else if sim, err = eng.NewSimulator(); err != nil {
		h.fail(w, "sim", errs.Wrap(err, "seed generate failed"))
		return
	}

	rep, used, err := sim.Run(r.Context(), req)
	if err != nil {
		h.fail(w, "sim", errs.Wrap(err, "simulate err"))
		return
	}
	h.writeJSON(w, http.StatusOK, simResponse{Report: rep, UsedTime: used.Milliseconds()})
}
