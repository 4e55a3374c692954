package binance

// errorCodeNames names the documented Binance error codes. Codes with a
// dedicated taxonomy mapping (auth, rate limit) are handled before this table
// is consulted.
var errorCodeNames = map[int]string{
	// 10xx: general server / network
	-1000: "UNKNOWN",
	-1001: "DISCONNECTED",
	-1003: "TOO_MANY_REQUESTS",
	-1006: "UNEXPECTED_RESP",
	-1007: "TIMEOUT",
	-1008: "SERVER_BUSY",
	-1013: "INVALID_MESSAGE",
	-1014: "UNKNOWN_ORDER_COMPOSITION",
	-1015: "TOO_MANY_ORDERS",
	-1016: "SERVICE_SHUTTING_DOWN",
	-1020: "UNSUPPORTED_OPERATION",

	// 11xx: request issues
	-1100: "ILLEGAL_CHARS",
	-1101: "TOO_MANY_PARAMETERS",
	-1102: "MANDATORY_PARAM_EMPTY_OR_MALFORMED",
	-1103: "UNKNOWN_PARAM",
	-1104: "UNREAD_PARAMETERS",
	-1105: "PARAM_EMPTY",
	-1106: "PARAM_NOT_REQUIRED",
	-1108: "PARAM_OVERFLOW",
	-1111: "BAD_PRECISION",
	-1112: "NO_DEPTH",
	-1114: "TIF_NOT_REQUIRED",
	-1115: "INVALID_TIF",
	-1116: "INVALID_ORDER_TYPE",
	-1117: "INVALID_SIDE",
	-1118: "EMPTY_NEW_CL_ORD_ID",
	-1119: "EMPTY_ORG_CL_ORD_ID",
	-1120: "BAD_INTERVAL",
	-1121: "BAD_SYMBOL",
	-1122: "INVALID_SYMBOL_STATUS",
	-1125: "INVALID_LISTEN_KEY",
	-1127: "MORE_THAN_XX_HOURS",
	-1128: "OPTIONAL_PARAMS_BAD_COMBO",
	-1130: "INVALID_PARAMETER",
	-1134: "BAD_STRATEGY_TYPE",
	-1135: "INVALID_JSON",
	-1139: "INVALID_TICKER_TYPE",
	-1145: "INVALID_CANCEL_RESTRICTIONS",
	-1151: "DUPLICATE_SYMBOLS",

	// 20xx: processing issues
	-2010: "NEW_ORDER_REJECTED",
	-2011: "CANCEL_REJECTED",
	-2013: "NO_SUCH_ORDER",
	-2016: "NO_TRADING_WINDOW",
	-2021: "ORDER_CANCEL_REPLACE_PARTIALLY_FAILED",
	-2022: "ORDER_CANCEL_REPLACE_FAILED",
	-2026: "ORDER_ARCHIVED",
}
