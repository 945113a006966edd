package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeCallerMissing       = "CALLER_MISSING"
	CodeCallerGrantInvalid  = "CALLER_GRANT_INVALID"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeNotFound            = "NOT_FOUND"
	CodePaused              = "PAUSED"
	CodeTransferFailed      = "TRANSFER_FAILED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeUnknownToken        = "UNKNOWN_TOKEN"
)

var enUSMessages = map[Code]string{
	CodeUnauthorized:        "This action requires the {{.Role}} role.",
	CodeCallerMissing:       "The calling address is missing.",
	CodeCallerGrantInvalid:  "The caller grant could not be verified.",
	CodeInvalidArgument:     "Invalid {{.Field}}.",
	CodeAlreadyExists:       "{{.Address}} is already an admin.",
	CodeNotFound:            "{{.Address}} is not an admin.",
	CodePaused:              "{{.Operation}} are paused.",
	CodeTransferFailed:      "The token transfer did not go through.",
	CodeInsufficientBalance: "The relay holds {{.Balance}}, less than the {{.Amount}} requested.",
	CodeUnknownToken:        "Token {{.Token}} is not known to this relay.",
}

var ptBRMessages = map[Code]string{
	CodeUnauthorized:        "Esta ação exige o papel {{.Role}}.",
	CodeCallerMissing:       "O endereço de origem não foi informado.",
	CodeCallerGrantInvalid:  "Não foi possível verificar a credencial do chamador.",
	CodeInvalidArgument:     "Valor inválido para {{.Field}}.",
	CodeAlreadyExists:       "{{.Address}} já é administrador.",
	CodeNotFound:            "{{.Address}} não é administrador.",
	CodePaused:              "{{.Operation}} estão pausadas.",
	CodeTransferFailed:      "A transferência de tokens não foi concluída.",
	CodeInsufficientBalance: "O relay possui {{.Balance}}, menos que os {{.Amount}} solicitados.",
	CodeUnknownToken:        "O token {{.Token}} não é conhecido por este relay.",
}
