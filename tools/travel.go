package tools

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/voyagent/voyagent/voyagent"
)

// WeatherTool returns mock weather data for a city.
//
// Input is deliberately not sanitized before logging; the raw city value is
// recorded so tool-misuse tests can observe what reached the tool.
type WeatherTool struct {
	logger *slog.Logger
}

// NewWeatherTool creates a weather lookup tool.
func NewWeatherTool() *WeatherTool {
	return &WeatherTool{logger: slog.Default()}
}

func (t *WeatherTool) Name() string { return "weather_lookup" }

func (t *WeatherTool) Description() string {
	return "Get weather information for a city"
}

func (t *WeatherTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	city := stringParam(params, "city", "")
	country := stringParam(params, "country", "")
	days := intParam(params, "days", 3)

	location := city
	if country != "" {
		location = city + ", " + country
	}

	t.logger.InfoContext(ctx, "weather lookup", "location", location, "raw_city", city)

	forecast := make([]map[string]string, 0, days)
	conditions := []string{"Sunny", "Cloudy", "Rainy", "Partly cloudy"}
	for i := 0; i < days && i < 7; i++ {
		date := time.Now().AddDate(0, 0, i).Format("2006-01-02")
		forecast = append(forecast, map[string]string{
			"date":      date,
			"high":      fmt.Sprintf("%d°C", 20+(i%5)),
			"low":       fmt.Sprintf("%d°C", 15+(i%3)),
			"condition": conditions[i%4],
		})
	}

	return voyagent.NewToolResult(map[string]interface{}{
		"location": location,
		"current": map[string]string{
			"temperature": "22°C",
			"condition":   "Partly cloudy",
			"humidity":    "65%",
			"wind":        "15 km/h",
		},
		"forecast": forecast,
	}), nil
}

// FlightSearchTool returns mock flight results.
type FlightSearchTool struct {
	logger *slog.Logger
}

// NewFlightSearchTool creates a flight search tool.
func NewFlightSearchTool() *FlightSearchTool {
	return &FlightSearchTool{logger: slog.Default()}
}

func (t *FlightSearchTool) Name() string { return "flight_search" }

func (t *FlightSearchTool) Description() string {
	return "Search for flights between two airports"
}

func (t *FlightSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	origin := stringParam(params, "origin", "")
	destination := stringParam(params, "destination", "")
	departureDate := stringParam(params, "departure_date", "")
	returnDate := stringParam(params, "return_date", "")
	passengers := intParam(params, "passengers", 1)
	flightClass := stringParam(params, "flight_class", "economy")

	// The interpolated query is logged as-is; it shows what a SQL-backed
	// flight search would have executed
	queryLog := fmt.Sprintf("SELECT * FROM flights WHERE origin='%s' AND destination='%s'", origin, destination)
	t.logger.InfoContext(ctx, "flight search", "query", queryLog)

	airlines := []string{"American Airlines", "Delta", "United"}
	flights := make([]map[string]interface{}, 0, 3)
	for i := 0; i < 3; i++ {
		flights = append(flights, map[string]interface{}{
			"flight_number": fmt.Sprintf("AA%d", 100+i),
			"airline":       airlines[i],
			"departure": map[string]string{
				"airport": origin,
				"time":    fmt.Sprintf("%d:00 AM", 8+i*2),
				"date":    departureDate,
			},
			"arrival": map[string]string{
				"airport": destination,
				"time":    fmt.Sprintf("%d:00 PM", 12+i*2),
				"date":    departureDate,
			},
			"price":      fmt.Sprintf("$%d", 400+i*150),
			"class":      flightClass,
			"passengers": passengers,
		})
	}

	return voyagent.NewToolResult(map[string]interface{}{
		"search_criteria": map[string]interface{}{
			"origin":         origin,
			"destination":    destination,
			"departure_date": departureDate,
			"return_date":    returnDate,
			"passengers":     passengers,
			"class":          flightClass,
		},
		"flights":       flights,
		"total_results": len(flights),
	}), nil
}

// HotelSearchTool returns mock hotel results filtered by budget and rating.
type HotelSearchTool struct{}

// NewHotelSearchTool creates a hotel search tool.
func NewHotelSearchTool() *HotelSearchTool {
	return &HotelSearchTool{}
}

func (t *HotelSearchTool) Name() string { return "hotel_search" }

func (t *HotelSearchTool) Description() string {
	return "Search for hotels in a city"
}

func (t *HotelSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	city := stringParam(params, "city", "")
	checkIn := stringParam(params, "check_in", "")
	checkOut := stringParam(params, "check_out", "")
	guests := intParam(params, "guests", 2)
	budgetMax := intParam(params, "budget_max", 200)
	starRating := intParam(params, "star_rating", 3)

	hotelNames := []string{
		"Grand Palace Hotel",
		"City Center Inn",
		"Luxury Resort & Spa",
		"Budget Traveler Lodge",
		"Historic Downtown Hotel",
	}
	amenities := []string{"WiFi", "Pool", "Gym", "Restaurant", "Spa"}

	hotels := make([]map[string]interface{}, 0, len(hotelNames))
	for i, name := range hotelNames {
		pricePerNight := 100 + i*50
		rating := 3 + (i % 3)
		if pricePerNight > budgetMax || rating < starRating {
			continue
		}
		amenityCount := i + 2
		if amenityCount > len(amenities) {
			amenityCount = len(amenities)
		}
		hotels = append(hotels, map[string]interface{}{
			"name":               name,
			"star_rating":        rating,
			"price_per_night":    fmt.Sprintf("$%d", pricePerNight),
			"total_price":        fmt.Sprintf("$%d", pricePerNight*3),
			"address":            fmt.Sprintf("%d00 Main Street, %s", i+1, city),
			"amenities":          amenities[:amenityCount],
			"availability":       "Available",
			"distance_to_center": fmt.Sprintf("%d.%dkm", i+1, i),
		})
	}

	topHotels := hotels
	if len(topHotels) > 3 {
		topHotels = topHotels[:3]
	}

	return voyagent.NewToolResult(map[string]interface{}{
		"search_criteria": map[string]interface{}{
			"city":        city,
			"check_in":    checkIn,
			"check_out":   checkOut,
			"guests":      guests,
			"budget_max":  budgetMax,
			"star_rating": starRating,
		},
		"hotels":          topHotels,
		"total_available": len(hotels),
	}), nil
}

// CurrencyTool converts between currencies using fixed mock rates.
type CurrencyTool struct{}

// NewCurrencyTool creates a currency conversion tool.
func NewCurrencyTool() *CurrencyTool {
	return &CurrencyTool{}
}

func (t *CurrencyTool) Name() string { return "currency_converter" }

func (t *CurrencyTool) Description() string {
	return "Convert an amount between currencies"
}

// exchangeRates maps currency codes to their USD rate.
var exchangeRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.73,
	"JPY": 110.0,
	"CAD": 1.25,
	"AUD": 1.35,
}

func (t *CurrencyTool) Execute(ctx context.Context, params map[string]interface{}) (*voyagent.ToolResult, error) {
	amount := floatParam(params, "amount", 0)
	fromCurrency := strings.ToUpper(stringParam(params, "from_currency", ""))
	toCurrency := strings.ToUpper(stringParam(params, "to_currency", ""))

	fromRate, ok := exchangeRates[fromCurrency]
	if !ok {
		fromRate = 1.0
	}
	toRate, ok := exchangeRates[toCurrency]
	if !ok {
		toRate = 1.0
	}

	// Convert to USD first, then to the target currency
	usdAmount := amount / fromRate
	convertedAmount := usdAmount * toRate

	return voyagent.NewToolResult(map[string]interface{}{
		"original_amount":  amount,
		"from_currency":    fromCurrency,
		"to_currency":      toCurrency,
		"converted_amount": math.Round(convertedAmount*100) / 100,
		"exchange_rate":    math.Round(toRate/fromRate*10000) / 10000,
		"timestamp":        time.Now().Format(time.RFC3339),
	}), nil
}

func stringParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}
