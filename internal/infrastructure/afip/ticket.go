// Firma CMS/PKCS#7 del loginTicketRequest (WSAA).

package afip

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/smallstep/pkcs7"
	"golang.org/x/crypto/pkcs12"
)

// TicketRequest parámetros del ticket de acceso a firmar.
type TicketRequest struct {
	UniqueID       uint32    // id único de la solicitud (no se repite dentro de la ventana de validez)
	GenerationTime time.Time // momento de generación
	ExpirationTime time.Time // vencimiento de la solicitud (minutos, no horas)
	Service        string    // servicio destino ("wsfe")
}

// TicketSigner construye y firma el loginTicketRequest con el certificado X.509
// y la llave privada del contribuyente. Solo lee material en memoria; no tiene
// otros efectos.
type TicketSigner struct {
	cert *x509.Certificate
	key  crypto.PrivateKey
}

// NewTicketSigner parsea el par certificado/llave desde bloques PEM.
// Falla con ErrCertificate si el contenido no trae los marcadores PEM esperados
// o no puede parsearse: error fatal de configuración, nunca se reintenta.
func NewTicketSigner(certPEM, keyPEM []byte) (*TicketSigner, error) {
	cert, err := parseCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}
	return &TicketSigner{cert: cert, key: key}, nil
}

// NewTicketSignerFromBase64 decodifica los bloques PEM desde base64 (formato en
// el que viajan por configuración) y construye el firmante.
func NewTicketSignerFromBase64(certB64, keyB64 string) (*TicketSigner, error) {
	certPEM, err := base64.StdEncoding.DecodeString(strings.TrimSpace(certB64))
	if err != nil {
		return nil, fmt.Errorf("%w: certificado base64: %v", ErrCertificate, err)
	}
	keyPEM, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyB64))
	if err != nil {
		return nil, fmt.Errorf("%w: llave base64: %v", ErrCertificate, err)
	}
	return NewTicketSigner(certPEM, keyPEM)
}

// NewTicketSignerFromP12 carga el par desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func NewTicketSignerFromP12(path, password string) (*TicketSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: leer p12: %v", ErrCertificate, err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: decodificar p12: %v", ErrCertificate, err)
	}
	return &TicketSigner{cert: cert, key: priv}, nil
}

// Subject devuelve el DN del certificado cargado (diagnóstico).
func (s *TicketSigner) Subject() string {
	return s.cert.Subject.String()
}

// SignLoginTicket arma el XML loginTicketRequest y lo envuelve en una firma
// CMS/PKCS#7 binaria (DER), lista para el campo in0 de loginCms.
func (s *TicketSigner) SignLoginTicket(req TicketRequest) ([]byte, error) {
	if req.Service == "" {
		return nil, fmt.Errorf("%w: servicio destino vacío", ErrCertificate)
	}

	xmlBytes, err := buildLoginTicketXML(req)
	if err != nil {
		return nil, fmt.Errorf("%w: armar loginTicketRequest: %v", ErrCertificate, err)
	}

	sd, err := pkcs7.NewSignedData(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: iniciar CMS: %v", ErrCertificate, err)
	}
	if err := sd.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("%w: firmar CMS: %v", ErrCertificate, err)
	}
	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: serializar CMS: %v", ErrCertificate, err)
	}
	return der, nil
}

// buildLoginTicketXML genera el XML del ticket según el esquema WSAA:
//
//	<loginTicketRequest version="1.0">
//	  <header><uniqueId/><generationTime/><expirationTime/></header>
//	  <service>wsfe</service>
//	</loginTicketRequest>
func buildLoginTicketXML(req TicketRequest) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")

	header := root.CreateElement("header")
	header.CreateElement("uniqueId").SetText(strconv.FormatUint(uint64(req.UniqueID), 10))
	header.CreateElement("generationTime").SetText(req.GenerationTime.Format(time.RFC3339))
	header.CreateElement("expirationTime").SetText(req.ExpirationTime.Format(time.RFC3339))

	root.CreateElement("service").SetText(req.Service)

	return doc.WriteToBytes()
}

// ── parsing PEM ───────────────────────────────────────────────────────────────

func parseCertificatePEM(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: se esperaba bloque PEM CERTIFICATE", ErrCertificate)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parsear certificado: %v", ErrCertificate, err)
	}
	return cert, nil
}

func parsePrivateKeyPEM(keyPEM []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: se esperaba bloque PEM de llave privada", ErrCertificate)
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parsear llave PKCS#1: %v", ErrCertificate, err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parsear llave PKCS#8: %v", ErrCertificate, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: bloque PEM de llave desconocido %q", ErrCertificate, block.Type)
	}
}
