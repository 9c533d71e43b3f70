package afip

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"
)

// Endpoints del WSAA (servicio de autenticación y autorización).
const (
	wsaaURLHomo = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	wsaaURLProd = "https://wsaa.afip.gov.ar/ws/services/LoginCms"

	wsaaNS = "http://wsaa.view.sua.dvadac.desein.afip.gov"
)

// WSAAClient cliente SOAP del servicio de autenticación. Recibe el CMS ya
// firmado (lo produce TicketSigner) y devuelve las credenciales token/sign.
type WSAAClient struct {
	httpClient *http.Client
	url        string
}

// NewWSAAClient construye el cliente según el entorno ("homo" | "prod").
func NewWSAAClient(env string) *WSAAClient {
	url := wsaaURLHomo
	if env == EnvProd {
		url = wsaaURLProd
	}
	return &WSAAClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
	}
}

// NewWSAAClientWithURL construye el cliente contra una URL arbitraria (tests).
func NewWSAAClientWithURL(url string) *WSAAClient {
	return &WSAAClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
	}
}

// Login envía el CMS firmado en la operación loginCms y parsea el
// loginTicketResponse (que viaja XML-escapado dentro del return).
// Respuestas malformadas se reportan como ErrAuthService.
func (c *WSAAClient) Login(ctx context.Context, signedTicket []byte) (*LoginCredentials, error) {
	body := &loginCmsBody{
		Xmlns: wsaaNS,
		In0:   base64.StdEncoding.EncodeToString(signedTicket),
	}

	// El WSAA ignora SOAPAction; se envía vacío por compatibilidad SOAP 1.1.
	raw, err := postSOAP(ctx, c.httpClient, c.url, "", body)
	if err != nil {
		return nil, err
	}

	var envResp wsaaResponseEnvelope
	if err := xml.Unmarshal(raw, &envResp); err != nil {
		return nil, fmt.Errorf("%w: parsear envelope: %v", ErrAuthService, err)
	}
	if envResp.Body.Fault != nil {
		return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s", ErrAuthService,
			envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	if envResp.Body.LoginCmsResponse == nil || envResp.Body.LoginCmsResponse.Return == "" {
		return nil, fmt.Errorf("%w: loginCmsReturn vacío", ErrAuthService)
	}

	var ticket loginTicketResponse
	if err := xml.Unmarshal([]byte(envResp.Body.LoginCmsResponse.Return), &ticket); err != nil {
		return nil, fmt.Errorf("%w: parsear loginTicketResponse: %v", ErrAuthService, err)
	}
	if ticket.Credentials.Token == "" || ticket.Credentials.Sign == "" {
		return nil, fmt.Errorf("%w: credenciales vacías", ErrAuthService)
	}

	generated, err := parseWSAATime(ticket.Header.GenerationTime)
	if err != nil {
		return nil, fmt.Errorf("%w: generationTime %q: %v", ErrAuthService, ticket.Header.GenerationTime, err)
	}
	expires, err := parseWSAATime(ticket.Header.ExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("%w: expirationTime %q: %v", ErrAuthService, ticket.Header.ExpirationTime, err)
	}

	return &LoginCredentials{
		Token:       ticket.Credentials.Token,
		Sign:        ticket.Credentials.Sign,
		GeneratedAt: generated,
		ExpiresAt:   expires,
	}, nil
}

// parseWSAATime parsea los timestamps ISO-8601 del WSAA (con o sin fracción de
// segundo).
func parseWSAATime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
