package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config. An empty
// MIRROR_BACKEND picks Sheets when a spreadsheet is configured and memory
// otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.MirrorBackend)
	if backendType == "" {
		backendType = MemoryBackend
		if appConfig.GoogleSpreadsheetID != "" {
			backendType = SheetsBackend
		}
	}
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid mirror backend in config: %s", appConfig.MirrorBackend)
	}

	return Config{
		Type:                     backendType,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleSheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets backend")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets backend")
		}

	case MemoryBackend:
		// nothing to configure
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
