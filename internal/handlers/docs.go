package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func response(description string, schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content":     jsonContent(schema),
	}
}

func ref(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

var idParameter = map[string]interface{}{
	"name":        "id",
	"in":          "path",
	"description": "Factory id",
	"required":    true,
	"schema":      map[string]string{"type": "integer", "format": "int64"},
}

var errorResponses = map[string]interface{}{
	"400": response("Invalid request", ref("Error")),
	"404": response("Factory not found", ref("Error")),
	"500": response("Internal error", ref("Error")),
}

func withErrors(ok map[string]interface{}, codes ...string) map[string]interface{} {
	responses := map[string]interface{}{"200": ok}
	for _, code := range codes {
		responses[code] = errorResponses[code]
	}
	return responses
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the factory API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	riskEnum := []string{"Low", "High", "Undefined"}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Climadex Factory API",
			"description": "Factory registry annotated with a temperature risk derived from projected warmest-quarter temperatures",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:3000", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/factory/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Get a factory",
					"parameters": []interface{}{idParameter},
					"responses":  withErrors(response("The factory", ref("Factory")), "400", "404", "500"),
				},
			},
			"/factory/{id}/temperature": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Projected temperature evolution at a factory",
					"description": "Mean temperature of the warmest quarter for each timeframe, nearest first. Temperature is null where the dataset has no value.",
					"parameters":  []interface{}{idParameter},
					"responses": withErrors(response("Temperature samples", map[string]interface{}{
						"type":  "array",
						"items": ref("TemperatureSample"),
					}), "400", "404", "500"),
				},
			},
			"/factories": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List factories",
					"description": "Factories ordered by id, filtered by name substring and risk",
					"parameters": []map[string]interface{}{
						{
							"name":        "q",
							"in":          "query",
							"description": "Case-insensitive substring of the factory name",
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "risk",
							"in":          "query",
							"description": "Temperature risk category",
							"schema":      map[string]interface{}{"type": "string", "enum": riskEnum},
						},
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number, 1-based (default: 1)",
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "pageSize",
							"in":          "query",
							"description": "Factories per page (default: 15)",
							"schema":      map[string]interface{}{"type": "integer", "default": 15},
						},
					},
					"responses": withErrors(response("One page of factories", map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"factories": map[string]interface{}{"type": "array", "items": ref("Factory")},
							"hasMore":   map[string]string{"type": "boolean"},
						},
					}), "400", "500"),
				},
				"post": map[string]interface{}{
					"summary":     "Create a factory",
					"description": "Validates the factory, computes its temperature risk and stores it",
					"requestBody": map[string]interface{}{
						"required": true,
						"content":  jsonContent(ref("FactoryInput")),
					},
					"responses": withErrors(response("Factory created", ref("Result")), "400", "500"),
				},
			},
			"/factories/temperature-risk": map[string]interface{}{
				"patch": map[string]interface{}{
					"summary":     "Recompute every factory's temperature risk",
					"description": "Re-evaluates and overwrites the cached risk of all factories",
					"responses":   withErrors(response("Recompute summary", ref("Result")), "500"),
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "Liveness check",
					"responses": map[string]interface{}{"200": map[string]string{"description": "API is running"}},
				},
			},
			"/ready": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Readiness check",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Database reachable"},
						"503": map[string]string{"description": "Database unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Prometheus metrics",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Factory": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":                       map[string]string{"type": "integer", "format": "int64"},
						"factoryName":              map[string]string{"type": "string"},
						"address":                  map[string]string{"type": "string"},
						"country":                  map[string]string{"type": "string"},
						"latitude":                 map[string]string{"type": "number"},
						"longitude":                map[string]string{"type": "number"},
						"yearlyRevenue":            map[string]string{"type": "number"},
						"temperatureRisk":          map[string]interface{}{"type": "string", "enum": riskEnum},
						"temperatureRiskUpdatedAt": map[string]string{"type": "string", "format": "date-time"},
					},
				},
				"FactoryInput": map[string]interface{}{
					"type":     "object",
					"required": []string{"factoryName", "country", "address", "latitude", "longitude", "yearlyRevenue"},
					"properties": map[string]interface{}{
						"factoryName":   map[string]string{"type": "string"},
						"country":       map[string]string{"type": "string"},
						"address":       map[string]string{"type": "string"},
						"latitude":      map[string]interface{}{"oneOf": []map[string]string{{"type": "number"}, {"type": "string"}}},
						"longitude":     map[string]interface{}{"oneOf": []map[string]string{{"type": "number"}, {"type": "string"}}},
						"yearlyRevenue": map[string]interface{}{"oneOf": []map[string]string{{"type": "number"}, {"type": "string"}}},
					},
				},
				"TemperatureSample": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"year":        map[string]string{"type": "string"},
						"temperature": map[string]interface{}{"type": "number", "nullable": true},
					},
				},
				"Result": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"result": map[string]string{"type": "string"},
						"id":     map[string]string{"type": "integer", "format": "int64"},
					},
				},
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec) //nolint:errcheck // client went away
}
