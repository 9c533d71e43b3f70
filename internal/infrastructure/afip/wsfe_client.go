package afip

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	pkgafip "github.com/tiendapos/facturacion-api/pkg/afip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Endpoints del WSFEv1 (facturación electrónica).
const (
	wsfeURLHomo = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	wsfeURLProd = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"

	wsfeNS         = "http://ar.gov.afip.dif.FEV1/"
	wsfeActionBase = "http://ar.gov.afip.dif.FEV1/"
)

// WSFEClient cliente SOAP del servicio de facturación.
type WSFEClient struct {
	httpClient *http.Client
	url        string
}

// NewWSFEClient construye el cliente según el entorno ("homo" | "prod").
func NewWSFEClient(env string) *WSFEClient {
	url := wsfeURLHomo
	if env == EnvProd {
		url = wsfeURLProd
	}
	return &WSFEClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
	}
}

// NewWSFEClientWithURL construye el cliente contra una URL arbitraria (tests).
func NewWSFEClientWithURL(url string) *WSFEClient {
	return &WSFEClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
	}
}

// LastAuthorizedInvoiceNumber consulta el último número de comprobante
// confirmado por AFIP para un punto de venta y tipo. Es una operación de
// diagnóstico/salud: la numeración NUNCA se asigna localmente a partir de esto.
func (c *WSFEClient) LastAuthorizedInvoiceNumber(ctx context.Context, auth Credentials, pointOfSale, voucherType int) (int64, error) {
	body := &feUltimoAutorizadoBody{
		Xmlns:    wsfeNS,
		Auth:     feAuth{Token: auth.Token, Sign: auth.Sign, Cuit: auth.TaxID},
		PtoVta:   pointOfSale,
		CbteTipo: voucherType,
	}

	raw, err := postSOAP(ctx, c.httpClient, c.url, wsfeActionBase+"FECompUltimoAutorizado", body)
	if err != nil {
		return 0, err
	}

	var envResp wsfeResponseEnvelope
	if err := xml.Unmarshal(raw, &envResp); err != nil {
		return 0, fmt.Errorf("%w: parsear envelope: %v", ErrInvoiceService, err)
	}
	if envResp.Body.Fault != nil {
		return 0, fmt.Errorf("%w: SOAP Fault [%s]: %s", ErrInvoiceService,
			envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	if envResp.Body.UltimoResponse == nil {
		return 0, fmt.Errorf("%w: respuesta vacía de FECompUltimoAutorizado", ErrInvoiceService)
	}

	result := envResp.Body.UltimoResponse.Result
	if len(result.Errors.Err) > 0 {
		first := result.Errors.Err[0]
		return 0, fmt.Errorf("%w: [%d] %s", ErrInvoiceService, first.Code, first.Msg)
	}
	return result.CbteNro, nil
}

// RequestAuthorization somete un comprobante a autorización (FECAESolicitar) y
// devuelve el resultado tipado: aprobado (número + CAE + vencimiento) o
// rechazado (errores y observaciones de AFIP).
func (c *WSFEClient) RequestAuthorization(ctx context.Context, auth Credentials, payload *InvoicePayload) (*AuthorizationResult, error) {
	body := buildCAERequest(auth, payload)

	raw, err := postSOAP(ctx, c.httpClient, c.url, wsfeActionBase+"FECAESolicitar", body)
	if err != nil {
		return nil, err
	}

	var envResp wsfeResponseEnvelope
	if err := xml.Unmarshal(raw, &envResp); err != nil {
		return nil, fmt.Errorf("%w: parsear envelope: %v", ErrInvoiceService, err)
	}
	if envResp.Body.Fault != nil {
		return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s", ErrInvoiceService,
			envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	if envResp.Body.CAEResponse == nil {
		return nil, fmt.Errorf("%w: respuesta vacía de FECAESolicitar", ErrInvoiceService)
	}

	return parseCAEResult(&envResp.Body.CAEResponse.Result, raw)
}

// buildCAERequest mapea el payload al esquema del WSFE. Los importes van con
// dos decimales; las descripciones se sanean a Latin-1 (el WS rechaza otros
// juegos de caracteres).
func buildCAERequest(auth Credentials, p *InvoicePayload) *fecaeSolicitarBody {
	det := feCAEDetRequest{
		Concepto:   p.Concept,
		DocTipo:    p.DocType,
		DocNro:     p.DocNumber,
		CbteFch:    p.Date.Format(pkgafip.DateFormatAFIP),
		ImpTotal:   fmtAmount(p.GrossTotal),
		ImpTotConc: "0.00",
		ImpNeto:    fmtAmount(p.NetTotal),
		ImpOpEx:    "0.00",
		ImpIVA:     fmtAmount(p.TaxTotal),
		ImpTrib:    "0.00",
		MonId:      p.Currency,
		MonCotiz:   fmtAmount(p.CurrencyRate),
	}
	for _, t := range p.TaxEntries {
		det.Iva.AlicIva = append(det.Iva.AlicIva, feAlicIva{
			Id:      t.RateID,
			BaseImp: fmtAmount(t.Base),
			Importe: fmtAmount(t.Amount),
		})
	}
	for _, it := range p.Items {
		det.Items.Item = append(det.Items.Item, feItem{
			Ds:         sanitizeDescription(it.Description),
			Qty:        fmtAmount(it.Quantity),
			PrecioUnit: fmtAmount(it.UnitPrice),
			Bonif:      fmtAmount(it.Bonus),
			SubTotal:   fmtAmount(it.Subtotal),
		})
	}

	return &fecaeSolicitarBody{
		Xmlns: wsfeNS,
		Auth:  feAuth{Token: auth.Token, Sign: auth.Sign, Cuit: auth.TaxID},
		FeCAEReq: feCAEReq{
			FeCabReq: feCabReq{CantReg: 1, PtoVta: p.PointOfSale, CbteTipo: p.VoucherType},
			FeDetReq: feDetReq{Det: []feCAEDetRequest{det}},
		},
	}
}

// parseCAEResult traduce la respuesta del WSFE al resultado tipado.
func parseCAEResult(result *fecaeResult, raw []byte) (*AuthorizationResult, error) {
	out := &AuthorizationResult{Raw: string(raw)}

	for _, e := range result.Errors.Err {
		out.Errors = append(out.Errors, Event{Code: e.Code, Message: e.Msg})
	}

	if len(result.FeDetResp.Det) == 0 {
		if len(out.Errors) > 0 {
			// Rechazo a nivel cabecera (auth vencida, payload inválido, etc.)
			return out, nil
		}
		return nil, fmt.Errorf("%w: sin detalle en FECAESolicitarResult", ErrInvoiceService)
	}

	det := result.FeDetResp.Det[0]
	for _, o := range det.Observaciones.Obs {
		out.Observations = append(out.Observations, Event{Code: o.Code, Message: o.Msg})
	}

	if result.FeCabResp.Resultado != "A" || det.Resultado != "A" {
		return out, nil
	}

	dueDate, err := time.Parse(pkgafip.DateFormatAFIP, det.CAEFchVto)
	if err != nil {
		return nil, fmt.Errorf("%w: CAEFchVto %q: %v", ErrInvoiceService, det.CAEFchVto, err)
	}

	out.Approved = true
	out.InvoiceNumber = det.CbteDesde
	out.CAE = det.CAE
	out.CAEDueDate = dueDate
	return out, nil
}

func fmtAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// sanitizeDescription reemplaza los caracteres fuera de Latin-1 antes del envío.
func sanitizeDescription(s string) string {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	encoded, _, err := transform.Bytes(enc, []byte(s))
	if err != nil {
		return s
	}
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), encoded)
	if err != nil {
		return s
	}
	return string(decoded)
}
