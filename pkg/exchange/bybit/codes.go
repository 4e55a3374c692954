package bybit

// errorCodeNames names the Bybit error codes that aren't mapped to the
// shared taxonomy. Unknown codes are logged and passed through numerically.
// https://bybit-exchange.github.io/docs/v5/error
var errorCodeNames = map[int]string{
	10001:  "PARAMS_ERROR",
	10002:  "REQUEST_EXPIRED",
	10009:  "IP_BANNED",
	10014:  "INVALID_DUPLICATE_REQUEST",
	10016:  "SERVER_ERROR",
	10017:  "ROUTE_NOT_FOUND",
	10024:  "COMPLIANCE_RULES",
	10027:  "TRADING_BANNED",
	10029:  "SYMBOL_NOT_WHITELISTED",
	110001: "ORDER_NOT_EXIST",
	110003: "PRICE_OUT_OF_RANGE",
	110004: "WALLET_BALANCE_INSUFFICIENT",
	110007: "INSUFFICIENT_AVAILABLE_BALANCE",
	110012: "INSUFFICIENT_MARGIN",
	110017: "REDUCE_ONLY_VIOLATION",
	110025: "POSITION_MODE_MISMATCH",
	170001: "SPOT_INTERNAL_ERROR",
	170007: "SPOT_TIMEOUT",
	170131: "SPOT_BALANCE_INSUFFICIENT",
	181001: "CATEGORY_ONLY_SUPPORTS_LINEAR",
}
