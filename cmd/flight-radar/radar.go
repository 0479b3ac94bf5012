package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/flightwatch/pkg/coordinates"
)

// radarDims returns the radar display dimensions for the current terminal.
func (m model) radarDims() (int, int) {
	radarWidth := m.width - 45 // Reserve space for info panel
	if radarWidth < 60 {
		radarWidth = 60
	}
	radarHeight := m.height - 4
	if radarHeight < 24 {
		radarHeight = 24
	}
	return radarWidth, radarHeight
}

// radarToScreen converts geographic coordinates to radar screen X/Y position.
// Returns -1,-1 if the point is outside the radar radius or screen bounds.
// Applies aspect ratio correction to account for character height:width
// ratio (~2:1).
func (m model) radarToScreen(lat, lon float64) (int, int) {
	pos := coordinates.Geographic{
		Latitude:  lat,
		Longitude: lon,
	}

	distanceNM := coordinates.DistanceNauticalMiles(m.radarCenter, pos)
	if distanceNM > m.radarRadius {
		return -1, -1
	}

	bearing := coordinates.Bearing(m.radarCenter, pos)

	radarWidth, radarHeight := m.radarDims()

	centerX := (radarWidth - 2) / 2
	centerY := radarHeight / 2

	const aspectRatio = 0.5

	maxScreenRadiusY := float64(radarHeight/2 - 3)
	maxScreenRadiusX := float64(radarWidth/2-3) * aspectRatio
	maxScreenRadius := maxScreenRadiusY
	if maxScreenRadiusX < maxScreenRadiusY {
		maxScreenRadius = maxScreenRadiusX
	}
	scale := maxScreenRadius / m.radarRadius

	// Bearing 0° = North = up = negative Y
	bearingRad := bearing * math.Pi / 180.0
	screenDist := distanceNM * scale

	dx := int(screenDist * math.Sin(bearingRad) / aspectRatio)
	dy := -int(screenDist * math.Cos(bearingRad))

	x := centerX + dx
	y := centerY + dy

	if x < 0 || x >= radarWidth-2 || y < 0 || y >= radarHeight {
		return -1, -1
	}

	return x, y
}

// renderRadar renders the radar view centered on the destination.
func (m model) renderRadar() string {
	var radar strings.Builder

	radarWidth, radarHeight := m.radarDims()

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	radar.WriteString(borderStyle.Render("┌" + strings.Repeat("─", radarWidth-2) + "┐"))
	radar.WriteString("\n")

	grid := make([][]rune, radarHeight)
	for i := range grid {
		grid[i] = make([]rune, radarWidth)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	centerX := (radarWidth - 2) / 2
	centerY := radarHeight / 2

	const aspectRatio = 0.5

	maxScreenRadiusY := float64(radarHeight/2 - 3)
	maxScreenRadiusX := float64(radarWidth/2-3) * aspectRatio
	maxScreenRadius := maxScreenRadiusY
	if maxScreenRadiusX < maxScreenRadiusY {
		maxScreenRadius = maxScreenRadiusX
	}
	scale := maxScreenRadius / m.radarRadius

	// Range rings at sensible intervals for the current radius
	ringIntervals := []float64{10, 25, 50, 100, 250, 500}
	var ringDistances []float64
	var ringLabels []string

	for _, interval := range ringIntervals {
		for dist := interval; dist < m.radarRadius; dist += interval {
			ringDistances = append(ringDistances, dist)
			ringLabels = append(ringLabels, fmt.Sprintf("%.0f", dist))
		}
		if len(ringDistances) >= 4 {
			break
		}
		ringDistances = ringDistances[:0]
		ringLabels = ringLabels[:0]
	}

	for i, ringDist := range ringDistances {
		screenRadius := int(ringDist * scale)
		drawCircle(grid, centerX, centerY, screenRadius, aspectRatio, '─')

		label := ringLabels[i]
		labelY := centerY - screenRadius
		labelX := centerX - len(label)/2
		if labelY >= 0 && labelY < radarHeight && labelX >= 0 && labelX+len(label) < radarWidth-2 {
			for j, ch := range label {
				if labelX+j < radarWidth-2 {
					grid[labelY][labelX+j] = ch
				}
			}
		}
	}

	// Cardinal directions
	if centerY-int(maxScreenRadius) >= 0 {
		grid[centerY-int(maxScreenRadius)][centerX] = 'N'
	}
	eastX := centerX + int(maxScreenRadius/aspectRatio)
	if eastX < radarWidth-2 {
		grid[centerY][eastX] = 'E'
	}
	if centerY+int(maxScreenRadius) < radarHeight {
		grid[centerY+int(maxScreenRadius)][centerX] = 'S'
	}
	westX := centerX - int(maxScreenRadius/aspectRatio)
	if westX >= 0 {
		grid[centerY][westX] = 'W'
	}

	// Route waypoints
	for i := 0; i < m.profile.NumWaypoints(); i++ {
		wp := m.profile.WaypointAt(i)
		x, y := m.radarToScreen(wp.Latitude, wp.Longitude)
		if x < 0 || y < 0 {
			continue
		}
		grid[y][x] = '◇'
	}

	// Destination at the radar center
	grid[centerY][centerX] = '⌖'

	// The monitored platform with its velocity vector
	px, py := m.radarToScreen(m.snap.Telemetry.Latitude, m.snap.Telemetry.Longitude)
	if px >= 0 && py >= 0 {
		grid[py][px] = '✈'
		if m.snap.Telemetry.Speed > 50 {
			drawVelocityVector(grid, px, py, m.snap.Telemetry.Heading, m.snap.Telemetry.Speed, aspectRatio)
		}
	}

	// Render grid with colors
	for y := 0; y < radarHeight; y++ {
		radar.WriteString(borderStyle.Render("│"))
		for x := 0; x < radarWidth-2; x++ {
			char := grid[y][x]
			switch char {
			case '✈':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true).Render(string(char)))
			case '⌖':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true).Render(string(char)))
			case '◇':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Render(string(char)))
			case 'N', 'E', 'S', 'W':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true).Render(string(char)))
			case '─':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render(string(char)))
			case '→', '-':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(string(char)))
			case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
				radar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Render(string(char)))
			default:
				radar.WriteRune(char)
			}
		}
		radar.WriteString(borderStyle.Render("│"))
		radar.WriteString("\n")
	}

	radar.WriteString(borderStyle.Render("└" + strings.Repeat("─", radarWidth-2) + "┘"))

	return radar.String()
}

// drawCircle draws a circle on the grid using Bresenham's circle algorithm.
// Applies aspect ratio correction so circles look round on terminals.
func drawCircle(grid [][]rune, cx, cy, radius int, aspectRatio float64, char rune) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		xScaled := int(float64(x) / aspectRatio)
		yScaled := int(float64(y) / aspectRatio)

		setPixel(grid, cx+xScaled, cy+y, char)
		setPixel(grid, cx+yScaled, cy+x, char)
		setPixel(grid, cx-yScaled, cy+x, char)
		setPixel(grid, cx-xScaled, cy+y, char)
		setPixel(grid, cx-xScaled, cy-y, char)
		setPixel(grid, cx-yScaled, cy-x, char)
		setPixel(grid, cx+yScaled, cy-x, char)
		setPixel(grid, cx+xScaled, cy-y, char)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// setPixel sets a pixel in the grid if it's within bounds.
// Only overwrites empty space or previous range ring pixels.
func setPixel(grid [][]rune, x, y int, char rune) {
	if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) {
		if grid[y][x] == ' ' || grid[y][x] == '─' {
			grid[y][x] = char
		}
	}
}

// drawVelocityVector draws the platform's velocity vector on the radar grid.
func drawVelocityVector(grid [][]rune, x, y int, headingDeg, speedKts, aspectRatio float64) {
	length := int(speedKts/150.0) + 1
	if length > 4 {
		length = 4
	}

	headingRad := headingDeg * math.Pi / 180.0

	for i := 1; i <= length; i++ {
		dx := int(float64(i) * math.Sin(headingRad) / aspectRatio)
		dy := -int(float64(i) * math.Cos(headingRad))

		nx, ny := x+dx, y+dy
		if ny >= 0 && ny < len(grid) && nx >= 0 && nx < len(grid[0]) {
			if grid[ny][nx] == ' ' || grid[ny][nx] == '─' {
				if i == length {
					grid[ny][nx] = '→'
				} else {
					grid[ny][nx] = '-'
				}
			}
		}
	}
}
