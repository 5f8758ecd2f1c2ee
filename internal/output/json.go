package output

import (
	"encoding/json"

	"github.com/jaxxstorm/ureport/internal/model"
)

func RenderJSON(outcomes []model.Outcome) (string, error) {
	b, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
