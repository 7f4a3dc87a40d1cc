package delivery

import (
	"strconv"

	"codeberg.org/thomiel/adored/internal/queue"
)

// utilizationPayload is the wire form of one impression. Numeric fields
// travel as strings; the service contract predates typed JSON handling on
// the backend.
type utilizationPayload struct {
	ClientUUID              string `json:"client_uuid"`
	TimePlayed              string `json:"time_played"`
	TimeSubmitted           string `json:"time_submitted"`
	Artist                  string `json:"artist"`
	Title                   string `json:"title"`
	Release                 string `json:"release"`
	TrackNumber             string `json:"track_number"`
	Duration                string `json:"duration"`
	FingerprintingAlgorithm string `json:"fingerprinting_algorithm"`
	FingerprintingVersion   string `json:"fingerprinting_version"`
	Fingerprint             string `json:"fingerprint"`
}

func utilizationPayloadFrom(clientUUID string, rec *queue.Record) utilizationPayload {
	return utilizationPayload{
		ClientUUID:              clientUUID,
		TimePlayed:              rec.TimePlayed,
		TimeSubmitted:           rec.TimeSubmitted,
		Artist:                  rec.Artist,
		Title:                   rec.Title,
		Release:                 rec.Release,
		TrackNumber:             strconv.Itoa(rec.TrackNumber),
		Duration:                strconv.Itoa(rec.Duration),
		FingerprintingAlgorithm: rec.FingerprintingAlgorithm,
		FingerprintingVersion:   rec.FingerprintingVersion,
		Fingerprint:             rec.Fingerprint,
	}
}

// registrationPayload identifies the client and plugin on the one-shot
// registration call.
type registrationPayload struct {
	ClientUUID    string `json:"client_uuid"`
	PlayerName    string `json:"player_name"`
	PlayerVersion string `json:"player_version"`
	PluginVendor  string `json:"plugin_vendor"`
	PluginName    string `json:"plugin_name"`
	PluginVersion string `json:"plugin_version"`
}

func registrationPayloadFor(clientUUID string) registrationPayload {
	return registrationPayload{
		ClientUUID:    clientUUID,
		PlayerName:    playerName,
		PlayerVersion: pluginVersion,
		PluginVendor:  pluginVendor,
		PluginName:    pluginName,
		PluginVersion: pluginVersion,
	}
}
