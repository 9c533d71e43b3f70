// genticket es una herramienta de diagnóstico de certificados AFIP: firma un
// loginTicketRequest con el certificado dado y, opcionalmente, lo canjea por
// credenciales contra el WSAA. Útil para validar un certificado nuevo antes de
// subirlo a la configuración del servicio.
//
// Uso:
//
//	genticket -cert cert.pem -key key.pem [-service wsfe] [-env homo] [-login]
//	genticket -p12 cert.p12 -password secreto -login
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tiendapos/facturacion-api/internal/infrastructure/afip"
)

func main() {
	certPath := flag.String("cert", "", "ruta al certificado PEM")
	keyPath := flag.String("key", "", "ruta a la llave privada PEM")
	p12Path := flag.String("p12", "", "alternativa: ruta al archivo .p12/.pfx")
	password := flag.String("password", "", "contraseña del .p12")
	service := flag.String("service", "wsfe", "servicio destino del ticket")
	env := flag.String("env", "homo", "entorno AFIP: homo | prod")
	doLogin := flag.Bool("login", false, "canjear el CMS contra el WSAA")
	flag.Parse()

	signer, err := buildSigner(*certPath, *keyPath, *p12Path, *password)
	if err != nil {
		fail("cargar certificado: %v", err)
	}
	fmt.Printf("Certificado: %s\n", signer.Subject())

	now := time.Now()
	signed, err := signer.SignLoginTicket(afip.TicketRequest{
		UniqueID:       uint32(now.Unix()),
		GenerationTime: now.Add(-10 * time.Minute),
		ExpirationTime: now.Add(10 * time.Minute),
		Service:        *service,
	})
	if err != nil {
		fail("firmar loginTicketRequest: %v", err)
	}
	fmt.Printf("CMS firmado (%d bytes DER)\n", len(signed))

	if !*doLogin {
		fmt.Println(base64.StdEncoding.EncodeToString(signed))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	creds, err := afip.NewWSAAClient(*env).Login(ctx, signed)
	if err != nil {
		fail("login WSAA: %v", err)
	}
	fmt.Printf("Token:      %s...\n", truncate(creds.Token, 40))
	fmt.Printf("Sign:       %s...\n", truncate(creds.Sign, 40))
	fmt.Printf("Generado:   %s\n", creds.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Vence:      %s\n", creds.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Vigencia:   %s\n", time.Until(creds.ExpiresAt).Round(time.Minute))
}

func buildSigner(certPath, keyPath, p12Path, password string) (*afip.TicketSigner, error) {
	if p12Path != "" {
		return afip.NewTicketSignerFromP12(p12Path, password)
	}
	if certPath == "" || keyPath == "" {
		return nil, fmt.Errorf("se requiere -cert y -key, o -p12")
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return afip.NewTicketSigner(certPEM, keyPEM)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
