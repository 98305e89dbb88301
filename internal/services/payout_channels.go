package services

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
)

// PayoutChannel is a withdrawal destination shown in the cash-out form.
type PayoutChannel struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Kind     string `json:"kind"` // mobile or bank
	LogoData string `json:"logoData"`
}

const (
	logosDir = "./static/channel-logos"
	demoSVG  = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" fill="#f0f0f0"/><path d="M100 60c-22.1 0-40 17.9-40 40s17.9 40 40 40 40-17.9 40-40-17.9-40-40-40zm0 65c-13.8 0-25-11.2-25-25s11.2-25 25-25 25 11.2 25 25-11.2 25-25 25z" fill="#999"/><text x="100" y="170" text-anchor="middle" font-family="Arial" font-size="14" fill="#666">PAYOUT</text></svg>`
)

var channelLogos = map[string]string{
	"bkash":  "bkash.svg",
	"nagad":  "nagad.svg",
	"rocket": "rocket.svg",
	"bank":   "bank.svg",
}

var payoutChannels = []PayoutChannel{
	{Code: "bkash", Name: "bKash", Kind: "mobile"},
	{Code: "nagad", Name: "Nagad", Kind: "mobile"},
	{Code: "rocket", Name: "Rocket", Kind: "mobile"},
	{Code: "bank", Name: "Bank Transfer", Kind: "bank"},
}

type PayoutChannelService struct{}

func NewPayoutChannelService() *PayoutChannelService {
	return &PayoutChannelService{}
}

// GetPayoutChannels lists the supported withdrawal channels
// @Summary List payout channels
// @Tags withdrawals
// @Produce json
// @Success 200 {array} PayoutChannel
// @Router /payout-channels [get]
func (pc *PayoutChannelService) GetPayoutChannels(w http.ResponseWriter, r *http.Request) {
	channels := make([]PayoutChannel, len(payoutChannels))
	copy(channels, payoutChannels)

	for i := range channels {
		channels[i].LogoData = pc.LoadLogo(channels[i].Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	json.NewEncoder(w).Encode(channels)
}

func (pc *PayoutChannelService) LoadLogo(code string) string {
	filename, ok := channelLogos[code]
	if !ok {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(demoSVG))
	}

	path := filepath.Join(logosDir, filename)
	if data, err := os.ReadFile(path); err == nil {
		return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data)
	}

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(demoSVG))
}
