package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logrusorgru/aurora"

	"github.com/jonah-saltzman/multithread-minimax/tictactoe"
)

type summary struct {
	Games       int
	MaxWins     int
	MinWins     int
	Draws       int
	Moves       int
	TotalNodes  int64
	TotalPrunes int64
	CachedMoves int
}

func summarize(records []gameRecord) summary {
	var s summary
	for _, record := range records {
		s.Games++
		switch record.Winner {
		case maximizer:
			s.MaxWins++
		case minimizer:
			s.MinWins++
		default:
			s.Draws++
		}
		for _, ply := range record.Plies {
			s.Moves++
			s.TotalNodes += ply.Nodes
			s.TotalPrunes += ply.Prunes
			if ply.Cached {
				s.CachedMoves++
			}
		}
	}
	return s
}

func renderBoard(au aurora.Aurora, game *tictactoe.Game) string {
	size := game.Size()
	width := len(strconv.Itoa(len(game.Cells) - 1))
	var sb strings.Builder
	for row := 0; row < size; row++ {
		cols := make([]string, size)
		for col := 0; col < size; col++ {
			pos := row*size + col
			text := fmt.Sprintf("%-*s", width, string(game.At(pos)))
			switch game.At(pos) {
			case maximizer:
				cols[col] = au.Red(text).Bold().String()
			case minimizer:
				cols[col] = au.Blue(text).Bold().String()
			default:
				cols[col] = au.Faint(fmt.Sprintf("%-*d", width, pos)).String()
			}
		}
		sb.WriteString(strings.Join(cols, " "))
		if row != size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderRecord(au aurora.Aurora, record gameRecord) string {
	result := au.Yellow("draw").String()
	if record.Winner != 0 {
		result = au.Green(string(record.Winner) + " wins").String()
	}
	header := fmt.Sprintf("game %d: %s in %d moves", record.Index+1, result, len(record.Plies))
	if record.Final == nil {
		return header
	}
	return header + "\n" + renderBoard(au, record.Final)
}

func renderSummary(au aurora.Aurora, s summary) string {
	avgNodes := 0.0
	if s.Moves > 0 {
		avgNodes = float64(s.TotalNodes) / float64(s.Moves)
	}
	return fmt.Sprintf("%s games=%d x=%d o=%d draws=%d moves=%d cached=%d nodes=%d prunes=%d avg-nodes=%.1f",
		au.Bold("summary"),
		s.Games, s.MaxWins, s.MinWins, s.Draws, s.Moves, s.CachedMoves, s.TotalNodes, s.TotalPrunes, avgNodes)
}
