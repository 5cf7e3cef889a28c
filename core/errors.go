package core

import "strconv"

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unkown
	ErrUnknown ErrorCode = 100000
	// ErrArithmetic overflow, underflow or division by zero
	ErrArithmetic ErrorCode = 100001
	// ErrPoolShortfall pool paid out less than the engine accounted for
	ErrPoolShortfall ErrorCode = 100002
	// ErrReentrantCall engine called back from inside one of its actions
	ErrReentrantCall ErrorCode = 100003

	// ErrAmountIsZero amount is zero
	ErrAmountIsZero ErrorCode = 100100
	// ErrAddressIsZero receiver or on behalf is the zero address
	ErrAddressIsZero ErrorCode = 100101
	// ErrMarketNotCreated market not created
	ErrMarketNotCreated ErrorCode = 100102
	// ErrMarketAlreadyCreated market already created
	ErrMarketAlreadyCreated ErrorCode = 100103
	// ErrMarketIsNotListed underlying not listed on the pool
	ErrMarketIsNotListed ErrorCode = 100104
	// ErrPermissionDenied caller is neither the user nor an approved manager
	ErrPermissionDenied ErrorCode = 100105
	// ErrExceedsMaxBasisPoints parameter above 10000 bps
	ErrExceedsMaxBasisPoints ErrorCode = 100106
	// ErrExceedsBorrowCap borrow cap reached
	ErrExceedsBorrowCap ErrorCode = 100107
	// ErrAssetNotCollateral asset can not be used as collateral
	ErrAssetNotCollateral ErrorCode = 100108
	// ErrBorrowNotEnabled borrowing disabled on the pool
	ErrBorrowNotEnabled ErrorCode = 100109
	// ErrBorrowNotPaused market must be borrow paused first
	ErrBorrowNotPaused ErrorCode = 100110
	// ErrMarketIsDeprecated deprecated markets stay borrow paused
	ErrMarketIsDeprecated ErrorCode = 100111

	// ErrUnauthorizedBorrow debt would exceed the borrowing power
	ErrUnauthorizedBorrow ErrorCode = 100200
	// ErrUnauthorizedWithdraw health factor would drop below one
	ErrUnauthorizedWithdraw ErrorCode = 100201
	// ErrUnauthorizedLiquidate borrower is healthy
	ErrUnauthorizedLiquidate ErrorCode = 100202
	// ErrCollateralIsZero borrower has no collateral in the market
	ErrCollateralIsZero ErrorCode = 100203
	// ErrDebtIsZero borrower has no debt in the market
	ErrDebtIsZero ErrorCode = 100204
	// ErrSentinelLiquidateNotEnabled sentinel blocks liquidations
	ErrSentinelLiquidateNotEnabled ErrorCode = 100205
	// ErrSentinelBorrowNotEnabled sentinel blocks borrows
	ErrSentinelBorrowNotEnabled ErrorCode = 100206

	// ErrSupplyIsPaused supply paused
	ErrSupplyIsPaused ErrorCode = 100300
	// ErrSupplyCollateralIsPaused supply collateral paused
	ErrSupplyCollateralIsPaused ErrorCode = 100301
	// ErrBorrowIsPaused borrow paused
	ErrBorrowIsPaused ErrorCode = 100302
	// ErrRepayIsPaused repay paused
	ErrRepayIsPaused ErrorCode = 100303
	// ErrWithdrawIsPaused withdraw paused
	ErrWithdrawIsPaused ErrorCode = 100304
	// ErrWithdrawCollateralIsPaused withdraw collateral paused
	ErrWithdrawCollateralIsPaused ErrorCode = 100305
	// ErrLiquidateCollateralIsPaused liquidate collateral paused
	ErrLiquidateCollateralIsPaused ErrorCode = 100306
	// ErrLiquidateBorrowIsPaused liquidate borrow paused
	ErrLiquidateBorrowIsPaused ErrorCode = 100307
)

var errorMessages = map[ErrorCode]string{
	ErrUnknown:                     "unknown",
	ErrArithmetic:                  "arithmetic error",
	ErrPoolShortfall:               "pool paid out less than requested",
	ErrReentrantCall:               "reentrant call",
	ErrAmountIsZero:                "amount is zero",
	ErrAddressIsZero:               "address is zero",
	ErrMarketNotCreated:            "market not created",
	ErrMarketAlreadyCreated:        "market already created",
	ErrMarketIsNotListed:           "market is not listed on pool",
	ErrPermissionDenied:            "permission denied",
	ErrExceedsMaxBasisPoints:       "exceeds max basis points",
	ErrExceedsBorrowCap:            "exceeds borrow cap",
	ErrAssetNotCollateral:          "asset is not collateral",
	ErrBorrowNotEnabled:            "borrow not enabled",
	ErrBorrowNotPaused:             "borrow not paused",
	ErrMarketIsDeprecated:          "market is deprecated",
	ErrUnauthorizedBorrow:          "unauthorized borrow",
	ErrUnauthorizedWithdraw:        "unauthorized withdraw",
	ErrUnauthorizedLiquidate:       "unauthorized liquidate",
	ErrCollateralIsZero:            "collateral is zero",
	ErrDebtIsZero:                  "debt is zero",
	ErrSentinelLiquidateNotEnabled: "sentinel liquidate not enabled",
	ErrSentinelBorrowNotEnabled:    "sentinel borrow not enabled",
	ErrSupplyIsPaused:              "supply is paused",
	ErrSupplyCollateralIsPaused:    "supply collateral is paused",
	ErrBorrowIsPaused:              "borrow is paused",
	ErrRepayIsPaused:               "repay is paused",
	ErrWithdrawIsPaused:            "withdraw is paused",
	ErrWithdrawCollateralIsPaused:  "withdraw collateral is paused",
	ErrLiquidateCollateralIsPaused: "liquidate collateral is paused",
	ErrLiquidateBorrowIsPaused:     "liquidate borrow is paused",
}

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

// Message readable message of the code
func (e ErrorCode) Message() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}

	return e.String()
}

func (e ErrorCode) Error() string {
	return e.Message()
}
