package afip

import (
	"encoding/xml"
	"time"

	"github.com/shopspring/decimal"
)

// ── Tipos públicos del protocolo ──────────────────────────────────────────────

// LoginCredentials credenciales devueltas por el WSAA tras un loginCms exitoso.
type LoginCredentials struct {
	Token       string
	Sign        string
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// Credentials autenticación de cada operación WSFE (token + sign + CUIT emisor).
type Credentials struct {
	Token string
	Sign  string
	TaxID string // CUIT del emisor
}

// InvoicePayload comprobante a autorizar. No lleva número: la numeración la
// asigna AFIP y vuelve en la respuesta aprobada.
type InvoicePayload struct {
	PointOfSale int
	VoucherType int
	Concept     int // fijo en productos para este sistema
	DocType     int
	DocNumber   int64
	Date        time.Time

	GrossTotal decimal.Decimal
	NetTotal   decimal.Decimal
	TaxTotal   decimal.Decimal

	Currency     string // "PES"
	CurrencyRate decimal.Decimal

	TaxEntries []TaxEntry
	Items      []InvoiceItem
}

// TaxEntry renglón del desglose de IVA (id de alícuota + base imponible + importe).
type TaxEntry struct {
	RateID int
	Base   decimal.Decimal
	Amount decimal.Decimal
}

// InvoiceItem renglón del comprobante tal como lo informa el sistema de origen.
type InvoiceItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal // neto de IVA
	Bonus       decimal.Decimal
	Subtotal    decimal.Decimal
}

// AuthorizationResult resultado tipado de FECAESolicitar: aprobado con número y
// CAE, o rechazado con los errores/observaciones informados por AFIP.
type AuthorizationResult struct {
	Approved      bool
	InvoiceNumber int64
	CAE           string
	CAEDueDate    time.Time
	Errors        []Event
	Observations  []Event
	Raw           string // respuesta cruda, se persiste opaca para auditoría
}

// ── Envelope SOAP (request) ───────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	Xmlns   string     `xml:"xmlns:soapenv,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── WSAA: loginCms ────────────────────────────────────────────────────────────

type loginCmsBody struct {
	XMLName xml.Name `xml:"loginCms"`
	Xmlns   string   `xml:"xmlns,attr"`
	In0     string   `xml:"in0"` // CMS firmado en base64
}

type wsaaResponseEnvelope struct {
	Body wsaaResponseBody `xml:"Body"`
}

type wsaaResponseBody struct {
	LoginCmsResponse *loginCmsResponse `xml:"loginCmsResponse"`
	Fault            *soapFault        `xml:"Fault"`
}

type loginCmsResponse struct {
	// El loginTicketResponse viaja como string XML escapado dentro del return.
	Return string `xml:"loginCmsReturn"`
}

type loginTicketResponse struct {
	XMLName xml.Name `xml:"loginTicketResponse"`
	Header  struct {
		GenerationTime string `xml:"generationTime"`
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

// ── WSFE: autenticación común ─────────────────────────────────────────────────

type feAuth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  string `xml:"Cuit"`
}

// ── WSFE: FECompUltimoAutorizado ──────────────────────────────────────────────

type feUltimoAutorizadoBody struct {
	XMLName  xml.Name `xml:"FECompUltimoAutorizado"`
	Xmlns    string   `xml:"xmlns,attr"`
	Auth     feAuth   `xml:"Auth"`
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
}

type feUltimoAutorizadoResponse struct {
	Result feUltimoAutorizadoResult `xml:"FECompUltimoAutorizadoResult"`
}

type feUltimoAutorizadoResult struct {
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
	CbteNro  int64    `xml:"CbteNro"`
	Errors   feErrors `xml:"Errors"`
}

// ── WSFE: FECAESolicitar ──────────────────────────────────────────────────────

type fecaeSolicitarBody struct {
	XMLName  xml.Name `xml:"FECAESolicitar"`
	Xmlns    string   `xml:"xmlns,attr"`
	Auth     feAuth   `xml:"Auth"`
	FeCAEReq feCAEReq `xml:"FeCAEReq"`
}

type feCAEReq struct {
	FeCabReq feCabReq `xml:"FeCabReq"`
	FeDetReq feDetReq `xml:"FeDetReq"`
}

type feCabReq struct {
	CantReg  int `xml:"CantReg"`
	PtoVta   int `xml:"PtoVta"`
	CbteTipo int `xml:"CbteTipo"`
}

type feDetReq struct {
	Det []feCAEDetRequest `xml:"FECAEDetRequest"`
}

// feCAEDetRequest detalle del comprobante. Los importes viajan formateados con
// dos decimales; la numeración no se informa (la asigna AFIP al aprobar).
type feCAEDetRequest struct {
	Concepto   int         `xml:"Concepto"`
	DocTipo    int         `xml:"DocTipo"`
	DocNro     int64       `xml:"DocNro"`
	CbteFch    string      `xml:"CbteFch"` // YYYYMMDD
	ImpTotal   string      `xml:"ImpTotal"`
	ImpTotConc string      `xml:"ImpTotConc"`
	ImpNeto    string      `xml:"ImpNeto"`
	ImpOpEx    string      `xml:"ImpOpEx"`
	ImpIVA     string      `xml:"ImpIVA"`
	ImpTrib    string      `xml:"ImpTrib"`
	MonId      string      `xml:"MonId"`
	MonCotiz   string      `xml:"MonCotiz"`
	Iva        feIvaArray  `xml:"Iva"`
	Items      feItemArray `xml:"Items"`
}

type feIvaArray struct {
	AlicIva []feAlicIva `xml:"AlicIva"`
}

type feAlicIva struct {
	Id      int    `xml:"Id"`
	BaseImp string `xml:"BaseImp"`
	Importe string `xml:"Importe"`
}

type feItemArray struct {
	Item []feItem `xml:"Item"`
}

type feItem struct {
	Ds         string `xml:"Ds"`
	Qty        string `xml:"Qty"`
	PrecioUnit string `xml:"PrecioUnit"`
	Bonif      string `xml:"Bonif"`
	SubTotal   string `xml:"SubTotal"`
}

type fecaeSolicitarResponse struct {
	Result fecaeResult `xml:"FECAESolicitarResult"`
}

type fecaeResult struct {
	FeCabResp feCabResp `xml:"FeCabResp"`
	FeDetResp feDetResp `xml:"FeDetResp"`
	Errors    feErrors  `xml:"Errors"`
}

type feCabResp struct {
	Resultado string `xml:"Resultado"` // "A" aprobado | "R" rechazado | "P" parcial
	CantReg   int    `xml:"CantReg"`
}

type feDetResp struct {
	Det []feCAEDetResponse `xml:"FECAEDetResponse"`
}

type feCAEDetResponse struct {
	Concepto      int    `xml:"Concepto"`
	DocTipo       int    `xml:"DocTipo"`
	DocNro        int64  `xml:"DocNro"`
	CbteDesde     int64  `xml:"CbteDesde"` // número asignado por AFIP
	CbteHasta     int64  `xml:"CbteHasta"`
	CbteFch       string `xml:"CbteFch"`
	Resultado     string `xml:"Resultado"`
	CAE           string `xml:"CAE"`
	CAEFchVto     string `xml:"CAEFchVto"` // YYYYMMDD
	Observaciones feObs  `xml:"Observaciones"`
}

type feObs struct {
	Obs []feEvent `xml:"Obs"`
}

type feErrors struct {
	Err []feEvent `xml:"Err"`
}

type feEvent struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

// ── Envelope SOAP (response, compartido WSFE) ─────────────────────────────────

type wsfeResponseEnvelope struct {
	Body wsfeResponseBody `xml:"Body"`
}

type wsfeResponseBody struct {
	UltimoResponse *feUltimoAutorizadoResponse `xml:"FECompUltimoAutorizadoResponse"`
	CAEResponse    *fecaeSolicitarResponse     `xml:"FECAESolicitarResponse"`
	Fault          *soapFault                  `xml:"Fault"`
}
