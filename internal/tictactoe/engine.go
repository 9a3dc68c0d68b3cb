package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const boardSide = 3

// WinCombos are the 8 winning lines of the 3x3 board: 3 rows, 3 columns,
// 2 diagonals, in flat row*3+col indexing.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// ApplyMove plays the given slot's mark at (row, col). A rejected move leaves
// the game untouched. On acceptance the outcome is re-evaluated; while the
// game stays open the turn passes to the other slot.
func ApplyMove(gameInstance *entity.Game, slot, row, col int) error {
	if gameInstance.IsFinished() {
		return apperror.ErrGameFinished
	}

	cell, err := cellIndex(row, col)
	if err != nil {
		return err
	}

	if gameInstance.Turn != slot {
		return apperror.ErrNotYourTurn
	}

	if gameInstance.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	gameInstance.Board[cell] = entity.MarkForSlot(slot)
	updateOutcome(gameInstance, slot)

	return nil
}

func cellIndex(row, col int) (int, error) {
	if row < 0 || row >= boardSide || col < 0 || col >= boardSide {
		return 0, apperror.ErrInvalidCell
	}

	return row*boardSide + col, nil
}

// updateOutcome settles the game after an accepted move.
func updateOutcome(gameInstance *entity.Game, slot int) {
	switch winner := Evaluate(gameInstance.Board); winner {
	case entity.MarkX, entity.MarkO:
		gameInstance.Winner = winner
		gameInstance.Status = entity.StatusFinished
	case entity.MarkTie:
		gameInstance.Winner = entity.MarkTie
		gameInstance.Status = entity.StatusFinished
	default:
		gameInstance.Turn = 1 - slot
	}
}

// Evaluate is a pure, total function of the board: the winning mark if any
// line is complete, MarkTie if all 9 cells are filled without one, and the
// empty string while the game is open. Detection is exhaustive over all 8
// lines.
func Evaluate(board [9]string) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range board {
		if cell == entity.EmptyCell {
			return ""
		}
	}

	return entity.MarkTie
}
