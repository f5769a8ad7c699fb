package router

import (
	"net/http"

	"github.com/senyabanana/licitaciones-service/internal/handlers"
)

func InitRoutes(tenderHandler *handlers.TenderHandler, bidHandler *handlers.BidHandler, criteriaHandler *handlers.CriteriaHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)

	mux.HandleFunc("GET /api/tenders", tenderHandler.GetTenders)
	mux.HandleFunc("POST /api/tenders/new", tenderHandler.CreateTender)
	mux.HandleFunc("GET /api/tenders/my", tenderHandler.GetCompanyTenders)
	mux.HandleFunc("GET /api/tenders/{tenderId}", tenderHandler.GetTender)
	mux.HandleFunc("GET /api/tenders/{tenderId}/status", tenderHandler.GetTenderStatus)
	mux.HandleFunc("PUT /api/tenders/{tenderId}/edit", tenderHandler.EditTender)
	mux.HandleFunc("PUT /api/tenders/{tenderId}/close", tenderHandler.CloseTender)
	mux.HandleFunc("PUT /api/tenders/{tenderId}/award", tenderHandler.AwardTender)
	mux.HandleFunc("PUT /api/tenders/{tenderId}/finalize", tenderHandler.FinalizeTender)
	mux.HandleFunc("DELETE /api/tenders/{tenderId}", tenderHandler.DeleteTender)

	mux.HandleFunc("POST /api/criteria/redistribute", criteriaHandler.Redistribute)

	mux.HandleFunc("POST /api/bids/new", bidHandler.CreateBid)
	mux.HandleFunc("GET /api/bids/my", bidHandler.GetSupplierBids)
	mux.HandleFunc("GET /api/bids/{tenderId}/list", bidHandler.GetTenderBids)
	mux.HandleFunc("GET /api/bids/{bidId}", bidHandler.GetBid)
	mux.HandleFunc("PUT /api/bids/{bidId}/edit", bidHandler.EditBid)
	mux.HandleFunc("PUT /api/bids/{bidId}/status", bidHandler.UpdateBidStatus)
	mux.HandleFunc("PUT /api/bids/{bidId}/score", bidHandler.ScoreBid)
	mux.HandleFunc("DELETE /api/bids/{bidId}", bidHandler.DeleteBid)

	return mux
}
