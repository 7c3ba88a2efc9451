package garden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"verdant/api/internal/openai"
	"verdant/api/internal/store"
)

// ErrBadCareInfo means the AI reply was not the requested JSON object. The
// plant is not persisted in that case.
var ErrBadCareInfo = errors.New("care info response is not valid JSON")

const (
	careInfoPersona = "You are a plant expert and will be given the name of a plant, find and respond with the requested information"
	careInfoRule    = "<RULE>[[NO PROSE]] [[JSON ONLY]] TAKE THE FOLLOWING PLANT NAME AND RETURN A JSON OBJECT WITH THE FOLLOWING ATTRIBUTES: watering_frequency, sunlight_hours, soil_type, temperature_range, common_pests, care_tip</RULE>"
	careInfoTokens  = 500
)

// Completer is the slice of the completion client the care source needs.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatMessage, maxTokens int) (string, error)
}

// AICareSource fetches care attributes for a plant name from the
// completion endpoint. One call, one result: the fetch either returns a
// parsed PlantCare once or fails once.
type AICareSource struct {
	client Completer
}

func NewAICareSource(client Completer) *AICareSource {
	return &AICareSource{client: client}
}

type careInfoPayload struct {
	WateringFrequency string   `json:"watering_frequency"`
	SunlightHours     string   `json:"sunlight_hours"`
	SoilType          string   `json:"soil_type"`
	TemperatureRange  string   `json:"temperature_range"`
	CommonPests       []string `json:"common_pests"`
	CareTip           string   `json:"care_tip"`
}

func (s *AICareSource) FetchCareInfo(ctx context.Context, plantName string) (store.PlantCare, error) {
	content, err := s.client.Complete(ctx, []openai.ChatMessage{
		{Role: "system", Content: careInfoPersona},
		{Role: "user", Content: careInfoRule + "<PLANTNAME>" + plantName + "</PLANTNAME>"},
	}, careInfoTokens)
	if err != nil {
		return store.PlantCare{}, fmt.Errorf("fetch care info: %w", err)
	}

	var payload careInfoPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return store.PlantCare{}, fmt.Errorf("%w: %v", ErrBadCareInfo, err)
	}

	return store.PlantCare{
		WateringFrequency: payload.WateringFrequency,
		SunlightHours:     payload.SunlightHours,
		SoilType:          payload.SoilType,
		TemperatureRange:  payload.TemperatureRange,
		CommonPests:       payload.CommonPests,
		CareTip:           payload.CareTip,
	}, nil
}
