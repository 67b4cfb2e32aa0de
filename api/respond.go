package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Kirito123l/emission-agent/pkg/stream"
)

// assistantTurn is one generated answer, shared by the streaming and
// single-shot chat handlers.
type assistantTurn struct {
	messageID string
	statuses  []string
	text      string
	chart     *stream.ChartPayload
	table     *stream.TablePayload
	fileID    string
	download  *stream.DownloadFile
}

// respond produces a canned assistant turn. Uploaded route files get a
// per-segment emissions table with a downloadable result; questions about
// curves get a speed/emission chart; everything else gets a short text
// answer.
func (s *Server) respond(uid string, in *chatInput) *assistantTurn {
	turn := &assistantTurn{
		messageID: uuid.NewString(),
		statuses:  []string{"Analyzing your request...", "Looking up emission factors..."},
	}

	switch {
	case in.upload != nil:
		s.respondRoute(uid, in, turn)
	case wantsChart(in.message):
		respondChart(turn)
	default:
		turn.text = "I can estimate vehicle emission factors for you. " +
			"Ask about an emission curve for a vehicle type, or upload a " +
			"route file to get per-segment emissions with a downloadable result."
	}

	return turn
}

func wantsChart(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range []string{"curve", "chart", "plot", "speed"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// respondChart builds a NOx/CO2 emission factor curve for a diesel light
// truck. Rates follow the usual U shape: high at crawl speeds, a minimum
// around 70 km/h, rising again toward highway speeds.
func respondChart(turn *assistantTurn) {
	turn.statuses = append(turn.statuses, "Generating emission curve...")
	turn.text = "Here is the emission factor curve for a 2019 diesel light truck. " +
		"NOx emissions are lowest near 70 km/h and rise steeply at crawl speeds."

	noxCurve := make([]stream.CurvePoint, 0, 21)
	co2Curve := make([]stream.CurvePoint, 0, 21)
	for speed := 20.0; speed <= 120.0; speed += 5.0 {
		noxCurve = append(noxCurve, stream.CurvePoint{
			SpeedKPH:     speed,
			EmissionRate: round4(noxRate(speed)),
		})
		co2Curve = append(co2Curve, stream.CurvePoint{
			SpeedKPH:     speed,
			EmissionRate: round4(co2Rate(speed)),
		})
	}

	turn.chart = &stream.ChartPayload{
		Kind:        "emission_curve",
		VehicleType: "light_truck",
		ModelYear:   2019,
		Pollutants: map[string]stream.PollutantSeries{
			"NOx": {Curve: noxCurve, Unit: "g/km"},
			"CO2": {Curve: co2Curve, Unit: "g/km"},
		},
		Metadata: stream.ChartMetadata{
			DataSource: "MOVES-derived lookup",
			SpeedRange: map[string]float64{"min": 20, "max": 120},
			DataPoints: len(noxCurve),
		},
		KeyPoints: []stream.KeyPoint{
			{Speed: 30, Rate: round4(noxRate(30)), Label: "urban", Pollutant: "NOx"},
			{Speed: 70, Rate: round4(noxRate(70)), Label: "optimal", Pollutant: "NOx"},
			{Speed: 110, Rate: round4(noxRate(110)), Label: "highway", Pollutant: "NOx"},
		},
	}
}

// respondRoute computes per-segment emissions from an uploaded route CSV
// and stores a result file for download.
func (s *Server) respondRoute(uid string, in *chatInput, turn *assistantTurn) {
	turn.statuses = append(turn.statuses, "Processing route file...")

	columns, rows, err := parseCSV(in.upload.data, 1000)
	if err != nil {
		turn.text = fmt.Sprintf("I could not read %s as a CSV route file: %v.", in.upload.filename, err)
		return
	}

	distanceCol := findColumn(columns, "distance_km")
	speedCol := findColumn(columns, "avg_speed_kph")
	if distanceCol == "" || speedCol == "" {
		turn.text = fmt.Sprintf("%s is missing the distance_km or avg_speed_kph column. "+
			"Download the route template to see the expected layout.", in.upload.filename)
		return
	}

	var totalDistance, totalNOx, totalCO2, totalTime float64
	resultRows := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		distance := toFloat(row[distanceCol])
		speed := toFloat(row[speedCol])
		if distance <= 0 || speed <= 0 {
			continue
		}

		nox := noxRate(speed) * distance
		co2 := co2Rate(speed) * distance
		totalDistance += distance
		totalNOx += nox
		totalCO2 += co2
		totalTime += distance / speed * 3600

		result := make(map[string]any, len(row)+2)
		for k, v := range row {
			result[k] = v
		}
		result["nox_g"] = round4(nox)
		result["co2_g"] = round4(co2)
		resultRows = append(resultRows, result)
	}

	resultColumns := append(append([]string{}, columns...), "nox_g", "co2_g")
	resultName := strings.TrimSuffix(in.upload.filename, ".csv") + "_emissions.csv"
	file := s.store.putFile(uid, resultName, resultCSV(resultColumns, resultRows))

	turn.text = fmt.Sprintf("I processed %d segments covering %.1f km. "+
		"Total NOx is %.1f g and total CO2 is %.0f g. The full per-segment "+
		"breakdown is available as a download.", len(resultRows), totalDistance, totalNOx, totalCO2)

	preview := resultRows
	if len(preview) > previewRowLimit {
		preview = preview[:previewRowLimit]
	}

	turn.fileID = file.ID
	turn.download = &stream.DownloadFile{
		URL:      "/api/download/" + file.Filename,
		Filename: file.Filename,
		FileID:   file.ID,
	}
	turn.table = &stream.TablePayload{
		Columns:      resultColumns,
		Rows:         preview,
		TotalRows:    len(resultRows),
		TotalColumns: len(resultColumns),
		Summary: &stream.TableSummary{
			TotalDistanceKM: round4(totalDistance),
			TotalTimeS:      round4(totalTime),
			TotalEmissionsG: map[string]float64{
				"NOx": round4(totalNOx),
				"CO2": round4(totalCO2),
			},
		},
		Download: turn.download,
		FileID:   file.ID,
	}
}

func resultCSV(columns []string, rows []map[string]any) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write(columns)
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = fmt.Sprint(row[col])
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.Bytes()
}

func findColumn(columns []string, name string) string {
	for _, col := range columns {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return col
		}
	}
	return ""
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f
	default:
		return 0
	}
}

// noxRate models NOx emissions in g/km at a given speed for a diesel
// light truck: an inverse term for stop-and-go penalties plus a quadratic
// term for highway load.
func noxRate(speedKPH float64) float64 {
	return 18.0/speedKPH + 0.00004*speedKPH*speedKPH + 0.12
}

// co2Rate models CO2 emissions in g/km at a given speed.
func co2Rate(speedKPH float64) float64 {
	return 4200.0/speedKPH + 0.018*speedKPH*speedKPH + 155.0
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
