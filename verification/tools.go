package verification

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coopdesk/certificate"
	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/tool"
)

// Tool names exposed by Gate.Tools.
const (
	ToolRequestCode = "request_verification_code"
	ToolVerifyCode  = "verify_code"
	ToolIssue       = "issue_certificate"
)

type requestCodeArgs struct {
	Cedula string `json:"cedula" description:"Número de cédula del asociado, solo dígitos" pattern:"^[0-9]{5,12}$"`
}

type verifyCodeArgs struct {
	Cedula string `json:"cedula" description:"Número de cédula del asociado, solo dígitos" pattern:"^[0-9]{5,12}$"`
	Code   string `json:"code" description:"Código de 6 dígitos que recibió el asociado"`
}

type issueArgs struct {
	Cedula string `json:"cedula" description:"Número de cédula del asociado, solo dígitos" pattern:"^[0-9]{5,12}$"`
	Kind   string `json:"kind" description:"Tipo de certificado" enum:"tributario,aportes,paz_y_salvo"`
}

// Tools returns the three capabilities of the flow, bound to the session of
// the calling tool context.
func (g *Gate) Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewTypedTool(ToolRequestCode,
			"Envía un código de verificación al celular registrado del asociado. Úsala en cuanto el asociado entregue su cédula.",
			func(tc *core.ToolContext, in requestCodeArgs) (any, error) {
				masked, err := g.RequestCode(tc.Context(), Key{SessionID: tc.SessionID(), Cedula: in.Cedula})
				if err != nil {
					return nil, toolError(ToolRequestCode, err)
				}

				return fmt.Sprintf("Se envió un código de verificación al número terminado en %s. Pide al asociado que escriba el código de 6 dígitos que recibió.", lastFour(masked)), nil
			}),
		tool.NewTypedTool(ToolVerifyCode,
			"Verifica el código que el asociado recibió en su celular.",
			func(tc *core.ToolContext, in verifyCodeArgs) (any, error) {
				if err := g.VerifyCode(tc.Context(), Key{SessionID: tc.SessionID(), Cedula: in.Cedula}, in.Code); err != nil {
					return nil, toolError(ToolVerifyCode, err)
				}

				return "Verificación exitosa. El asociado está autenticado y ya puedes generar el certificado.", nil
			}),
		tool.NewTypedTool(ToolIssue,
			"Genera el certificado solicitado. Solo funciona después de verificar el código del asociado.",
			func(tc *core.ToolContext, in issueArgs) (any, error) {
				kind, err := certificate.ParseKind(in.Kind)
				if err != nil {
					return nil, &tool.ToolError{Tool: ToolIssue, Message: err.Error(), Code: tool.CodeValidation, Err: err}
				}

				cert, err := g.Issue(tc.Context(), Key{SessionID: tc.SessionID(), Cedula: in.Cedula}, kind)
				if err != nil {
					return nil, toolError(ToolIssue, err)
				}

				return fmt.Sprintf("Certificado %s generado con éxito. Código de verificación: %s. Enlace de descarga: %s",
					kind, cert.Reference, cert.URI), nil
			}),
	}
}

func lastFour(masked string) string {
	r := []rune(masked)
	if len(r) <= 4 {
		return masked
	}

	return string(r[len(r)-4:])
}

// toolError maps flow errors to tool errors whose message the model can relay.
func toolError(name string, err error) error {
	te := &tool.ToolError{Tool: name, Err: err}

	switch {
	case errors.Is(err, ErrNoPendingRequest):
		te.Code = CodeNoPendingRequest
		te.Message = "No hay una solicitud de verificación pendiente para esta cédula. Solicita primero un código de verificación."
	case errors.Is(err, ErrVerificationRejected):
		te.Code = CodeVerificationRejected
		te.Message = "El código es incorrecto o expiró. Pide al asociado que lo revise y lo ingrese de nuevo."
	case errors.Is(err, ErrNotVerified):
		te.Code = CodeNotVerified
		te.Message = "El asociado no ha sido verificado. Debes solicitar y verificar el código primero."
	case errors.Is(err, ErrGenerationFailed):
		te.Code = CodeGenerationFailed
		te.Message = fmt.Sprintf("No fue posible generar el certificado: %v", err)
	case errors.Is(err, ErrSendFailed):
		te.Code = CodeSendFailed
		te.Message = fmt.Sprintf("No fue posible enviar el código de verificación: %v", err)
	default:
		te.Code = tool.CodeExecution
		te.Message = err.Error()
	}

	return te
}
