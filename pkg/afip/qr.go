package afip

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/url"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// QRBaseURL URL de verificación pública de comprobantes AFIP; el payload viaja
// en el query param "p" como JSON en base64 (RG 4892/2020).
const QRBaseURL = "https://www.afip.gob.ar/fe/qr/"

// QRPayload es el objeto JSON versionado embebido en el QR del comprobante.
// Los nombres de campo están fijados por la especificación del QR AFIP.
type QRPayload struct {
	Ver        int     `json:"ver"`        // versión del formato (1)
	Fecha      string  `json:"fecha"`      // fecha de emisión YYYY-MM-DD
	CUIT       int64   `json:"cuit"`       // CUIT del emisor
	PtoVta     int     `json:"ptoVta"`     // punto de venta
	TipoCmp    int     `json:"tipoCmp"`    // tipo de comprobante
	NroCmp     int64   `json:"nroCmp"`     // número de comprobante
	Importe    float64 `json:"importe"`    // importe total
	Moneda     string  `json:"moneda"`     // "PES"
	Ctz        float64 `json:"ctz"`        // cotización (1 para PES)
	TipoDocRec int     `json:"tipoDocRec"` // tipo de documento del receptor
	NroDocRec  int64   `json:"nroDocRec"`  // número de documento del receptor
	TipoCodAut string  `json:"tipoCodAut"` // "E" = CAE
	CodAut     int64   `json:"codAut"`     // CAE
}

// BuildQRURL serializa el payload a JSON, lo codifica en base64 estándar y lo
// embebe en la URL de verificación.
func BuildQRURL(p QRPayload) (string, error) {
	if p.Ver == 0 {
		p.Ver = 1
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("qr: serializar payload: %w", err)
	}
	return QRBaseURL + "?p=" + base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeQRURL recupera el payload desde una URL de verificación generada con
// BuildQRURL. Es la operación inversa exacta (round-trip).
func DecodeQRURL(qrURL string) (*QRPayload, error) {
	u, err := url.Parse(qrURL)
	if err != nil {
		return nil, fmt.Errorf("qr: URL inválida: %w", err)
	}
	b64 := u.Query().Get("p")
	if b64 == "" {
		return nil, fmt.Errorf("qr: falta parámetro p")
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("qr: base64 inválido: %w", err)
	}
	var p QRPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("qr: JSON inválido: %w", err)
	}
	return &p, nil
}

// RenderQRPNG genera la imagen escaneable (PNG cuadrado de size px) para la URL
// de verificación.
func RenderQRPNG(qrURL string, size int) ([]byte, error) {
	if strings.TrimSpace(qrURL) == "" {
		return nil, fmt.Errorf("qr: URL vacía")
	}
	if size <= 0 {
		size = 256
	}
	code, err := qr.Encode(qrURL, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr: codificar: %w", err)
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("qr: escalar: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("qr: PNG: %w", err)
	}
	return buf.Bytes(), nil
}
