package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"colorfulez-server/api"
	"colorfulez-server/assets"
	"colorfulez-server/config"
	"colorfulez-server/facility"
)

// Writes one sample stripes bundle per decoratable room type and a generated
// layout, then asks a local server to reload its assets.
//
// Usage: bundle_create [assets dir] [layout file]
func main() {
	cfg := config.Load()
	dir := cfg.AssetsPath
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	layoutPath := filepath.Join(dir, "..", "layout.json")
	if len(os.Args) > 2 {
		layoutPath = os.Args[2]
	}

	loader, err := assets.NewLoader(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	names := make([]string, 0, len(config.PrefabConversion))
	for name := range config.PrefabConversion {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path, err := loader.Save(name, sampleBundle(name, rng))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote bundle %s\n", path)
	}

	f, err := facility.Generate(cfg.LayoutRows, cfg.LayoutCols, cfg.LayoutSeed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := f.SaveLayout(layoutPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d room layout to %s\n", len(f.Rooms()), layoutPath)

	requestReload(cfg)
}

// sampleBundle builds a prefab of stripes along both walls of a corridor,
// with a host-only bracket per stripe.
func sampleBundle(name string, rng *rand.Rand) *assets.Bundle {
	root := assets.Node{Name: name}
	count := 3 + rng.Intn(4)
	for i := 0; i < count; i++ {
		z := float32(i*2 - count)
		for _, side := range []float32{-1, 1} {
			scale := [3]float32{0.05, 0.3, 1.5}
			root.Children = append(root.Children, assets.Node{
				Name:     fmt.Sprintf("Stripe %d %+.0f", i, side),
				Mesh:     "Cube Instance",
				Position: [3]float32{side * 3.9, 1.2, z},
				Scale:    &scale,
				Color:    "white",
				Children: []assets.Node{{
					Name:     "Bracket (ignore)",
					Mesh:     "Cylinder",
					Position: [3]float32{0, -0.4, 0},
				}},
			})
		}
	}
	return &assets.Bundle{Prefabs: []assets.Node{root}}
}

func requestReload(cfg config.Config) {
	token, err := api.GenerateToken(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminUsername, api.RoleAdmin, time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: could not generate admin token: %v\n", err)
		return
	}
	body, _ := json.Marshal(map[string][]string{"args": {"reload"}})
	url := fmt.Sprintf("http://localhost%s/api/v1/commands", cfg.Addr)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: building request failed: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: API request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "warn: API reload returned status %s\n", resp.Status)
		return
	}
	var res struct {
		Success bool     `json:"success"`
		Lines   []string `json:"lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		fmt.Fprintf(os.Stderr, "warn: bad API response: %v\n", err)
		return
	}
	fmt.Printf("Reload via API: success=%v %v\n", res.Success, res.Lines)
}
