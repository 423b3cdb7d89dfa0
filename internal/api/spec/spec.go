// Пакет spec — встроенный OpenAPI контракт Profile Module.
// Контракт валидируется kin-openapi при старте сервиса и отдаётся
// клиентам по /api/v1/openapi.json.
package spec

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// Load разбирает и валидирует встроенный OpenAPI контракт.
// Вызывается при старте сервиса: невалидный контракт — ошибка сборки релиза.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI контракта: %w", err)
	}
	return doc, nil
}

// Handler возвращает HTTP-обработчик, отдающий контракт в JSON.
func Handler(doc *openapi3.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(doc)
	}
}
