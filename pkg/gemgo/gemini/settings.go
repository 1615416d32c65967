package gemini

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// HarmCategory is a moderated content category.
type HarmCategory string

const (
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
)

// HarmBlockThreshold is the per-category blocking threshold.
type HarmBlockThreshold string

const (
	HarmBlockThresholdUnspecified HarmBlockThreshold = "HARM_BLOCK_THRESHOLD_UNSPECIFIED"
	BlockLowAndAbove              HarmBlockThreshold = "BLOCK_LOW_AND_ABOVE"
	BlockMediumAndAbove           HarmBlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh                 HarmBlockThreshold = "BLOCK_ONLY_HIGH"
	BlockNone                     HarmBlockThreshold = "BLOCK_NONE"
)

// HarmCategories lists the four categories the API moderates.
func HarmCategories() []HarmCategory {
	return []HarmCategory{
		HarmCategoryHateSpeech,
		HarmCategorySexuallyExplicit,
		HarmCategoryDangerousContent,
		HarmCategoryHarassment,
	}
}

// SafetySetting maps a harm category to a blocking threshold.
type SafetySetting struct {
	Category  HarmCategory       `json:"category"`
	Threshold HarmBlockThreshold `json:"threshold"`
}

// GenerationConfig controls decoding and output formatting.
//
// All fields are optional; unset fields are omitted from the request so the
// API applies its own defaults. Extra holds generationConfig keys not yet
// modeled here; extra keys never override explicitly modeled fields.
type GenerationConfig struct {
	StopSequences    []string `json:"stopSequences,omitempty"`
	ResponseMIMEType *string  `json:"responseMimeType,omitempty"`
	ResponseSchema   any      `json:"responseSchema,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	CandidateCount   *int     `json:"candidateCount,omitempty"`

	Extra map[string]any `json:"-"`
}

// MarshalJSON merges typed fields with Extra.
func (o GenerationConfig) MarshalJSON() ([]byte, error) {
	m := map[string]any{}

	if len(o.StopSequences) > 0 {
		m["stopSequences"] = append([]string(nil), o.StopSequences...)
	}
	if o.ResponseMIMEType != nil {
		m["responseMimeType"] = *o.ResponseMIMEType
	}
	if o.ResponseSchema != nil {
		m["responseSchema"] = o.ResponseSchema
	}
	if o.MaxOutputTokens != nil {
		m["maxOutputTokens"] = *o.MaxOutputTokens
	}
	if o.Temperature != nil {
		m["temperature"] = *o.Temperature
	}
	if o.TopP != nil {
		m["topP"] = *o.TopP
	}
	if o.TopK != nil {
		m["topK"] = *o.TopK
	}
	if o.CandidateCount != nil {
		m["candidateCount"] = *o.CandidateCount
	}

	for k, v := range o.Extra {
		if _, exists := m[k]; exists {
			continue
		}
		m[k] = v
	}

	return json.Marshal(m)
}

// DefaultStreamMaxJSONSize bounds a single JSON object of a streamed response.
const DefaultStreamMaxJSONSize = 1024 * 1024 // 1 MiB

// Settings gathers the per-request knobs: safety settings, generation config
// and system instruction. A zero-valued Settings sends the API defaults
// chosen by Context.Build.
type Settings struct {
	safetySettings    []SafetySetting
	generationConfig  *GenerationConfig
	systemInstruction *string
	streamMaxJSONSize int
}

// NewSettings returns an empty Settings.
func NewSettings() *Settings {
	return &Settings{}
}

// SetAllSafetySettings applies the same threshold to every harm category.
func (s *Settings) SetAllSafetySettings(threshold HarmBlockThreshold) {
	settings := make([]SafetySetting, 0, len(HarmCategories()))
	for _, c := range HarmCategories() {
		settings = append(settings, SafetySetting{Category: c, Threshold: threshold})
	}
	s.safetySettings = settings
}

// SetSafetySetting sets the threshold of a single harm category, keeping the
// other categories untouched.
func (s *Settings) SetSafetySetting(category HarmCategory, threshold HarmBlockThreshold) {
	for i := range s.safetySettings {
		if s.safetySettings[i].Category == category {
			s.safetySettings[i].Threshold = threshold
			return
		}
	}
	s.safetySettings = append(s.safetySettings, SafetySetting{Category: category, Threshold: threshold})
}

// SafetySettings returns a copy of the configured safety settings.
func (s *Settings) SafetySettings() []SafetySetting {
	return append([]SafetySetting(nil), s.safetySettings...)
}

// SetGenerationConfig replaces the whole generation config.
func (s *Settings) SetGenerationConfig(cfg GenerationConfig) {
	s.generationConfig = cloneGenerationConfig(&cfg)
}

// GenerationConfig returns the configured generation config, or nil.
func (s *Settings) GenerationConfig() *GenerationConfig {
	return cloneGenerationConfigOrNil(s.generationConfig)
}

// SetTemperature sets generationConfig.temperature.
func (s *Settings) SetTemperature(v float64) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	s.generationConfig.Temperature = &v
}

// SetTopP sets generationConfig.topP.
func (s *Settings) SetTopP(v float64) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	s.generationConfig.TopP = &v
}

// SetTopK sets generationConfig.topK.
func (s *Settings) SetTopK(v int) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	s.generationConfig.TopK = &v
}

// SetCandidateCount sets generationConfig.candidateCount.
func (s *Settings) SetCandidateCount(v int) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	s.generationConfig.CandidateCount = &v
}

// SetMaxOutputTokens sets generationConfig.maxOutputTokens.
func (s *Settings) SetMaxOutputTokens(v int) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	s.generationConfig.MaxOutputTokens = &v
}

// SetStopSequences sets generationConfig.stopSequences (up to 5 accepted by the API).
func (s *Settings) SetStopSequences(stops ...string) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	s.generationConfig.StopSequences = append([]string(nil), stops...)
}

// SetResponseMIMEType sets generationConfig.responseMimeType
// (e.g. "application/json").
func (s *Settings) SetResponseMIMEType(mime string) {
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	mime = strings.TrimSpace(mime)
	if mime == "" {
		s.generationConfig.ResponseMIMEType = nil
		return
	}
	s.generationConfig.ResponseMIMEType = &mime
}

// SetGenerationConfigField sets a single generationConfig key via the Extra
// map. Useful when the API grows fields not yet modeled by GenerationConfig.
func (s *Settings) SetGenerationConfigField(key string, value any) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	if s.generationConfig.Extra == nil {
		s.generationConfig.Extra = make(map[string]any)
	}
	s.generationConfig.Extra[key] = value
}

// SetResponseSchema reflects a JSON schema from v and configures structured
// JSON output (responseMimeType=application/json + responseSchema).
func (s *Settings) SetResponseSchema(v any) {
	schema := jsonschema.Reflect(v)
	s.generationConfig = cloneGenerationConfig(s.generationConfig)
	mime := "application/json"
	s.generationConfig.ResponseMIMEType = &mime
	s.generationConfig.ResponseSchema = schema
}

// SetSystemInstruction sets the system prompt sent with every request.
func (s *Settings) SetSystemInstruction(instruction string) {
	s.systemInstruction = &instruction
}

// SystemInstruction returns the configured system instruction, or "".
func (s *Settings) SystemInstruction() string {
	if s.systemInstruction == nil {
		return ""
	}
	return *s.systemInstruction
}

// SetStreamMaxJSONSize bounds a single JSON object of a streamed response.
// Values <= 0 restore DefaultStreamMaxJSONSize.
func (s *Settings) SetStreamMaxJSONSize(n int) {
	s.streamMaxJSONSize = n
}

// StreamMaxJSONSize returns the configured bound, falling back to
// DefaultStreamMaxJSONSize.
func (s *Settings) StreamMaxJSONSize() int {
	if s == nil || s.streamMaxJSONSize <= 0 {
		return DefaultStreamMaxJSONSize
	}
	return s.streamMaxJSONSize
}

// cloneGenerationConfig ensures a non-nil config and avoids sharing slices
// and maps across copies.
func cloneGenerationConfig(in *GenerationConfig) *GenerationConfig {
	if in == nil {
		return &GenerationConfig{}
	}
	dup := *in
	if in.StopSequences != nil {
		dup.StopSequences = append([]string(nil), in.StopSequences...)
	}
	if in.Extra != nil {
		dup.Extra = make(map[string]any, len(in.Extra))
		for k, v := range in.Extra {
			dup.Extra[k] = v
		}
	}
	return &dup
}

func cloneGenerationConfigOrNil(in *GenerationConfig) *GenerationConfig {
	if in == nil {
		return nil
	}
	return cloneGenerationConfig(in)
}
