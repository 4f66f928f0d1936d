// config.go - Haupt-Konfigurationsfunktionen fuer mayo
//
// Dieses Modul enthaelt:
// - NumGPUs: Ueberschreibt system.num_gpus (MAYO_NUM_GPUS)
// - HistoryWindow: Standard-Fenster fuer Estimator-Historie (MAYO_HISTORY)
// - Inputs: Ueberschreibt den Test-Eingabeordner (MAYO_INPUTS)
// - LogLevel: Gibt Log-Level zurueck (MAYO_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_features.go: GPU-Sichtbarkeit
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// NumGPUs gibt die per Umgebung erzwungene GPU-Anzahl zurueck
// Konfigurierbar via MAYO_NUM_GPUS
// 0 = keine Ueberschreibung, die Session-Konfiguration gilt
var NumGPUs = Uint("MAYO_NUM_GPUS", 0)

// HistoryWindow gibt die Standard-Fenstergroesse fuer Estimator-Werte zurueck
// Konfigurierbar via MAYO_HISTORY
// Default: 100
var HistoryWindow = Uint("MAYO_HISTORY", 100)

// Inputs gibt den Test-Eingabeordner zurueck
// Konfigurierbar via MAYO_INPUTS
// Leer = system.search_path.run.inputs aus der Konfiguration
var Inputs = String("MAYO_INPUTS")

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via MAYO_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("MAYO_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
