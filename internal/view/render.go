package view

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/weathercode"
)

// ForecastRows caps the daily table.
const ForecastRows = 7

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Render writes either the error line or the full weather panel for p. A payload whose daily
// sequences disagree is shown as an error rather than a partial panel.
func Render(w io.Writer, p models.WeatherPayload) error {
	if p.Weather == nil {
		msg := p.Error
		if msg == "" {
			msg = MsgUnexpectedResponse
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}
	if err := p.Weather.Daily.Validate(); err != nil {
		_, werr := fmt.Fprintln(w, MsgUnexpectedResponse)
		return werr
	}

	c := p.Weather.Current
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, p.Location)
	fmt.Fprintf(tw, "  %d°  %s · Feels like %d°\n",
		round(c.Temperature2m), weathercode.LabelFor(c.WeatherCode), round(c.ApparentTemperature))
	fmt.Fprintf(tw, "  Humidity %d%%  Wind %d km/h %s  %s\n",
		round(c.RelativeHumidity2m), round(c.WindSpeed10m), Compass(c.WindDirection10m), dayOrNight(c.IsDay))

	d := p.Weather.Daily
	if d.Len() > 0 {
		fmt.Fprintf(tw, "\n%d-day forecast\n", min(d.Len(), ForecastRows))
		for i := 0; i < d.Len() && i < ForecastRows; i++ {
			fmt.Fprintf(tw, "  %s\t%s\t%d° / %d°\n",
				dayName(i, d.Time[i]), weathercode.LabelFor(d.WeatherCode[i]),
				round(d.Temperature2mMin[i]), round(d.Temperature2mMax[i]))
		}
	}
	return tw.Flush()
}

// Compass maps a bearing in degrees to one of eight points. NaN yields "".
func Compass(deg float64) string {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return ""
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return compassPoints[int(math.Round(d/45))%len(compassPoints)]
}

func dayName(i int, date string) string {
	if i == 0 {
		return "Today"
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Format("Mon")
}

func dayOrNight(isDay int) string {
	if isDay == 1 {
		return "Day"
	}
	return "Night"
}

// round works in ints so small negatives print as 0, never -0.
func round(v float64) int {
	return int(math.Round(v))
}
