package message

import "encoding/json"

// Dos formatos de payload, uno por familia de plataforma, igual que los
// construía el gateway antiguo.

type apsBody struct {
	Alert string `json:"alert"`
}

type iosPayload struct {
	Aps   apsBody `json:"aps"`
	Badge int     `json:"badge,omitempty"`
	Sound string  `json:"sound,omitempty"`
}

type androidData struct {
	Body    string `json:"body"`
	Message string `json:"message"`
	Title   string `json:"title,omitempty"`
	Param   string `json:"param,omitempty"`
	Key     string `json:"key,omitempty"`
}

type androidPayload struct {
	CollapseKey string      `json:"collapseKey"`
	Data        androidData `json:"data"`
}

func buildIosPayload(n Notification) ([]byte, error) {
	return json.Marshal(iosPayload{
		Aps:   apsBody{Alert: n.Message},
		Badge: n.Badge,
		Sound: n.Sound,
	})
}

func buildAndroidPayload(n Notification) ([]byte, error) {
	collapseKey := n.CollapseKey
	if collapseKey == "" {
		collapseKey = "optional"
	}
	return json.Marshal(androidPayload{
		CollapseKey: collapseKey,
		Data: androidData{
			Body:    n.Message,
			Message: n.Message,
			Title:   n.Title,
			Param:   n.Param,
			Key:     n.Key,
		},
	})
}
