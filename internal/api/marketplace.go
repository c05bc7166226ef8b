package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Pathfinder/internal/marketplace"
)

type MarketplaceHandler struct {
	market *marketplace.Marketplace
}

func NewMarketplaceHandler(m *marketplace.Marketplace) *MarketplaceHandler {
	return &MarketplaceHandler{market: m}
}

// List ranks lender offers for the requested amount and tenure.
// GET /api/v1/marketplace?goal=&desiredAmount=&desiredTenure=
func (h *MarketplaceHandler) List(w http.ResponseWriter, r *http.Request) {
	goal, err := marketplace.ParseGoal(r.URL.Query().Get("goal"))
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := queryFloat(r, "desiredAmount", marketplace.DefaultAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	tenure, err := queryInt(r, "desiredTenure", marketplace.DefaultTenureMonths)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.market.Rank(r.Context(), marketplace.Request{Goal: goal, Amount: amount, TenureMonths: tenure})
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Offers == nil {
		res.Offers = []marketplace.RankedOffer{}
	}
	writeJSON(w, http.StatusOK, res)
}
