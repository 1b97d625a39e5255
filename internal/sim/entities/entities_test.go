package entities

import "testing"

func TestLevelScoreRoundTrip(t *testing.T) {
	for level := MinBoatLevel; level <= MaxBoatLevel; level++ {
		if got := ScoreToLevel(LevelToScore(level)); got != level {
			t.Fatalf("level %d: ScoreToLevel(LevelToScore)=%d", level, got)
		}
	}
	if LevelToScore(MinBoatLevel) != 0 {
		t.Fatalf("first level must be free")
	}
	if got := ScoreToLevel(1 << 30); got != MaxBoatLevel {
		t.Fatalf("huge score: got level %d", got)
	}
}

func TestBoatClampsLevel(t *testing.T) {
	if b := Boat(0); b.Level != MinBoatLevel {
		t.Fatalf("Boat(0).Level=%d", b.Level)
	}
	if b := Boat(200); b.Level != MaxBoatLevel {
		t.Fatalf("Boat(200).Level=%d", b.Level)
	}
	if Boat(MaxBoatLevel).VisualRange <= Boat(MinBoatLevel).VisualRange {
		t.Fatalf("higher levels should see further")
	}
}

func TestKindTraits(t *testing.T) {
	if !KindMine.TeamTied() || KindBoat.TeamTied() || KindDecoy.TeamTied() {
		t.Fatalf("only mines are team tied")
	}
	if !KindDecoy.Limited() || KindBoat.Limited() || KindMine.Limited() {
		t.Fatalf("only decoys are limited")
	}
}
