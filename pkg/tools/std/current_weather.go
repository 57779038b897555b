// Package std предоставляет стандартные инструменты для AI агента.
//
// Все инструменты следуют контракту "Raw In, String Out" (pkg/tools.Tool):
// прикладные ошибки кодируются в JSON результат, чтобы модель могла
// их прочитать и скорректировать свой вызов.
package std

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ilkoid/praktika-ai/pkg/tools"
	"github.com/ilkoid/praktika-ai/pkg/utils"
)

// Эндпоинты Open-Meteo. API публичный, ключ не требуется — удобно
// для демонстрации function calling без регистрации.
const (
	geocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// HTTPClient абстрагирует HTTP клиент для тестирования.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CurrentWeatherTool — погода в городе через Open-Meteo.
//
// Двухшаговый запрос: геокодинг имени города в координаты, затем
// текущая погода по координатам.
type CurrentWeatherTool struct {
	httpClient HTTPClient
	geoURL     string
	weatherURL string
}

// WeatherOption настраивает CurrentWeatherTool.
type WeatherOption func(*CurrentWeatherTool)

// WithWeatherHTTPClient подставляет HTTP клиент (для тестов).
func WithWeatherHTTPClient(hc HTTPClient) WeatherOption {
	return func(t *CurrentWeatherTool) { t.httpClient = hc }
}

// WithWeatherEndpoints переопределяет URL API (для тестов).
func WithWeatherEndpoints(geo, weather string) WeatherOption {
	return func(t *CurrentWeatherTool) {
		t.geoURL = geo
		t.weatherURL = weather
	}
}

// NewCurrentWeatherTool создает инструмент погоды.
func NewCurrentWeatherTool(opts ...WeatherOption) *CurrentWeatherTool {
	t := &CurrentWeatherTool{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		geoURL:     geocodingURL,
		weatherURL: forecastURL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Definition возвращает определение инструмента для function calling.
func (t *CurrentWeatherTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "current_weather",
		Description: "Получить текущую погоду в городе: температуру, влажность, ветер и условия. Используй когда пользователь спрашивает о погоде.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"city": map[string]interface{}{
					"type":        "string",
					"description": "Название города на английском или местном языке (например, 'Bratislava', 'Tokyo')",
				},
			},
			"required": []string{"city"},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
func (t *CurrentWeatherTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return marshalToolError(fmt.Sprintf("невалидные аргументы: %v", err), "INVALID_ARGS")
	}
	if args.City == "" {
		return marshalToolError("параметр city обязателен", "INVALID_ARGS")
	}

	location, err := t.geocode(ctx, args.City)
	if err != nil {
		return marshalToolError(fmt.Sprintf("город '%s' не найден: %v", args.City, err), "CITY_NOT_FOUND")
	}

	weather, err := t.fetchWeather(ctx, location)
	if err != nil {
		return marshalToolError(fmt.Sprintf("сервис погоды недоступен: %v", err), "WEATHER_UNAVAILABLE")
	}

	utils.Debug("Weather tool executed",
		"city", location.Name,
		"temperature", weather.Current.Temperature)

	result := map[string]interface{}{
		"city":             location.Name,
		"country":          location.Country,
		"latitude":         location.Latitude,
		"longitude":        location.Longitude,
		"temperature_c":    weather.Current.Temperature,
		"humidity_percent": weather.Current.Humidity,
		"wind_speed_kmh":   weather.Current.WindSpeed,
		"conditions":       describeWeatherCode(weather.Current.WeatherCode),
		"observation_time": weather.Current.Time,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// geoLocation — результат геокодинга.
type geoLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

type geoResponse struct {
	Results []geoLocation `json:"results"`
}

// weatherResponse — текущая погода Open-Meteo.
type weatherResponse struct {
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// geocode превращает имя города в координаты.
func (t *CurrentWeatherTool) geocode(ctx context.Context, city string) (geoLocation, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("format", "json")

	var parsed geoResponse
	if err := t.getJSON(ctx, t.geoURL+"?"+params.Encode(), &parsed); err != nil {
		return geoLocation{}, err
	}
	if len(parsed.Results) == 0 {
		return geoLocation{}, fmt.Errorf("no geocoding results")
	}
	return parsed.Results[0], nil
}

// fetchWeather запрашивает текущую погоду по координатам.
func (t *CurrentWeatherTool) fetchWeather(ctx context.Context, loc geoLocation) (weatherResponse, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.5f", loc.Latitude))
	params.Set("longitude", fmt.Sprintf("%.5f", loc.Longitude))
	params.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")

	var parsed weatherResponse
	if err := t.getJSON(ctx, t.weatherURL+"?"+params.Encode(), &parsed); err != nil {
		return weatherResponse{}, err
	}
	return parsed, nil
}

func (t *CurrentWeatherTool) getJSON(ctx context.Context, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("api error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// describeWeatherCode переводит WMO weather code в текстовое описание.
func describeWeatherCode(code int) string {
	switch code {
	case 0:
		return "clear sky"
	case 1, 2:
		return "partly cloudy"
	case 3:
		return "overcast"
	case 45, 48:
		return "fog"
	case 51, 53, 55:
		return "drizzle"
	case 56, 57, 66, 67:
		return "freezing rain"
	case 61, 63, 65:
		return "rain"
	case 71, 73, 75, 77:
		return "snow"
	case 80, 81, 82:
		return "rain showers"
	case 85, 86:
		return "snow showers"
	case 95:
		return "thunderstorm"
	case 96, 99:
		return "thunderstorm with hail"
	default:
		return fmt.Sprintf("unknown (code %d)", code)
	}
}

// marshalToolError создает результат ошибки и маршалит его в JSON строку.
// Ошибка уходит в LLM как данные: модель может поправить вызов или
// сообщить пользователю что пошло не так.
func marshalToolError(message, errType string) (string, error) {
	data, err := json.Marshal(map[string]interface{}{
		"error":      message,
		"error_type": errType,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
