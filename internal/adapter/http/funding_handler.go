package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	chainDomain "gaplend-backend/internal/domain/chain"
	listingDomain "gaplend-backend/internal/domain/listing"
	"gaplend-backend/internal/usecase/funding"
	"gaplend-backend/pkg/amount"
)

type FundingHandler struct{ uc *funding.Usecase }

func NewFundingHandler(uc *funding.Usecase) *FundingHandler { return &FundingHandler{uc: uc} }

type fundReq struct {
	ListingID uint64 `json:"listing_id" validate:"required"`
	Investor  string `json:"investor"   validate:"required,ethaddr"`
	Amount    string `json:"amount"     validate:"required,wei"`
	Currency  string `json:"currency"   validate:"required,oneof=NATIVE USDT USDC"`
}

func (h *FundingHandler) Fund(c echo.Context) error {
	var req fundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	amt, err := amount.FromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
	}

	res, err := h.uc.Fund(c.Request().Context(), funding.FundInput{
		ListingID: req.ListingID,
		Investor:  req.Investor,
		Amount:    amt,
		Currency:  chainDomain.Currency(req.Currency),
	})
	if err != nil {
		return writeFundingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type withdrawReq struct {
	ListingID uint64 `json:"listing_id" validate:"required"`
	Investor  string `json:"investor"   validate:"required,ethaddr"`
}

func (h *FundingHandler) Withdraw(c echo.Context) error {
	var req withdrawReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	res, err := h.uc.Withdraw(c.Request().Context(), funding.WithdrawInput{
		ListingID: req.ListingID,
		Investor:  req.Investor,
	})
	if err != nil {
		return writeFundingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SettlementStatus lets callers resolve an ambiguous settlement instead
// of blindly re-POSTing (which would risk a duplicate transfer).
func (h *FundingHandler) SettlementStatus(c echo.Context) error {
	ref := c.Param("tx_ref")
	if !reTxHash.MatchString(ref) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid tx_ref"})
	}
	st, err := h.uc.SettlementStatus(c.Request().Context(), chainDomain.TxRef(ref))
	if err != nil {
		return writeFundingError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// writeFundingError maps the reconciler's error taxonomy to status
// codes. Settlement-pending is deliberately a 202, not an error status:
// money may have moved and the caller must poll.
func writeFundingError(c echo.Context, err error) error {
	var pending *funding.SettlementPendingError
	switch {
	case errors.As(err, &pending):
		return c.JSON(http.StatusAccepted, map[string]string{
			"status":       "settlement_pending",
			"chain_tx_ref": string(pending.TxRef),
		})
	case errors.Is(err, listingDomain.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, listingDomain.ErrAlreadyWithdrawn):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, funding.ErrInvalidAmount),
		errors.Is(err, funding.ErrUnsupportedCurrency),
		errors.Is(err, funding.ErrExceedsRemaining),
		errors.Is(err, funding.ErrListingClosed),
		errors.Is(err, listingDomain.ErrInvalidTransition):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chainDomain.ErrChainRejected):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	case errors.Is(err, funding.ErrLedgerRetryExhausted):
		// chain leg is final; the settlement poll endpoint can still finish
		// the accounting
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
