package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Entornos AFIP.
const (
	EnvHomo = "homo" // homologación (pruebas)
	EnvProd = "prod" // producción
)

// requestTimeout timeout fijo de cada llamada SOAP. Los WS de AFIP no son
// cancelables en vuelo: el timeout es el único mecanismo de aborto.
const requestTimeout = 10 * time.Second

// maxResponseBytes límite de lectura de respuestas (1 MB).
const maxResponseBytes = 1 << 20

// postSOAP serializa el body dentro de un envelope SOAP 1.1, hace el POST y
// devuelve el cuerpo crudo de la respuesta.
//
// Valida status HTTP y Content-Type ANTES de cualquier parseo XML: respuestas
// no-XML se reportan como ErrTransport, nunca se parsean en silencio. El único
// status no-2xx admitido es el 500 con cuerpo XML (SOAP Fault 1.1).
func postSOAP(ctx context.Context, client *http.Client, url, soapAction string, body interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		Xmlns: "http://schemas.xmlsoap.org/soap/envelope/",
		Body:  soapBody{Content: body},
	}

	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", ErrTransport, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	isXML := strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "xml")
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	// Un SOAP Fault 1.1 llega con HTTP 500 y cuerpo XML: se deja pasar para
	// que el caller lo parsee y lo clasifique.
	if !ok && !(resp.StatusCode == http.StatusInternalServerError && isXML) {
		return nil, fmt.Errorf("%w: HTTP %d", ErrTransport, resp.StatusCode)
	}
	if !isXML {
		return nil, fmt.Errorf("%w: Content-Type inesperado %q", ErrTransport, resp.Header.Get("Content-Type"))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", ErrTransport, err)
	}
	return raw, nil
}
