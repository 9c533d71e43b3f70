package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/tiendapos/facturacion-api/internal/interfaces/http"
	pkgjwt "github.com/tiendapos/facturacion-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testBranchID  = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "facturacion-api-test"
	testExpMin    = 60
)

// buildTestApp construye una aplicación Fiber mínima con:
//   - AuthMiddleware para parsear el JWT y cargar locals
//   - RequireRole para autorizar el acceso
//   - Un handler dummy que devuelve 200 si pasa los middlewares
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		// Silenciar errores internos en los tests
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	// Ruta protegida: JWT + RBAC
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"ok":     true,
				"role":   apphttp.GetRole(c),
				"branch": apphttp.GetBranchID(c),
			})
		},
	)
	return app
}

// tokenForRole genera un JWT con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testBranchID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddlewareValidToken(t *testing.T) {
	app := buildTestApp("cajero", "supervisor", "admin")
	resp := doRequest(t, app, tokenForRole(t, "cajero"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "cajero", body["role"], "el rol viaja en los locals")
	assert.Equal(t, testBranchID, body["branch"], "la sucursal viaja en los locals")
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	app := buildTestApp("cajero")
	resp := doRequest(t, app, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareBadFormat(t *testing.T) {
	app := buildTestApp("cajero")
	for _, header := range []string{"token-sin-prefijo", "Basic abc123", "Bearer "} {
		resp := doRequest(t, app, header)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestAuthMiddlewareInvalidSignature(t *testing.T) {
	tok, err := pkgjwt.Generate("otro-secreto", testUserID, testBranchID, "admin", testIssuer, testExpMin)
	require.NoError(t, err)

	app := buildTestApp("admin")
	resp := doRequest(t, app, "Bearer "+tok)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "firma con otro secreto se rechaza")
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testBranchID, "admin", testIssuer, -1)
	require.NoError(t, err)

	app := buildTestApp("admin")
	resp := doRequest(t, app, "Bearer "+tok)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRoleAllows(t *testing.T) {
	app := buildTestApp("supervisor", "admin")
	resp := doRequest(t, app, tokenForRole(t, "supervisor"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRoleForbids(t *testing.T) {
	app := buildTestApp("supervisor", "admin")
	resp := doRequest(t, app, tokenForRole(t, "cajero"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "un cajero no puede operar rutas de supervisión")
}
