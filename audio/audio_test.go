package audio

import (
	"testing"

	"github.com/ssakurai/rlvm/gameexe"
)

func TestBuildMaterialisesMusicAndSoundEffectRecords(t *testing.T) {
	exe := gameexe.New()
	exe.Set("MUSIC.theme01.FILE", []gameexe.Token{gameexe.NewStrToken("bgm01")})
	exe.Set("MUSIC.theme01.LOOP", []gameexe.Token{gameexe.NewIntToken(1)})
	exe.Set("MUSIC.theme01.CHANNEL", []gameexe.Token{gameexe.NewIntToken(2)})
	exe.Set("SE.click.FILE", []gameexe.Token{gameexe.NewStrToken("se_click")})

	table := Build(exe)

	track, ok := table.Track("theme01")
	if !ok {
		t.Fatal("expected theme01 to be present")
	}
	if track.File != "bgm01" || !track.Loop || track.Channel != 2 {
		t.Fatalf("unexpected track: %+v", track)
	}

	effect, ok := table.Effect("click")
	if !ok {
		t.Fatal("expected click to be present")
	}
	if effect.File != "se_click" {
		t.Fatalf("unexpected effect: %+v", effect)
	}

	if _, ok := table.Track("missing"); ok {
		t.Fatal("expected missing track to be absent")
	}
}

func TestBuildSkipsRecordsMissingFile(t *testing.T) {
	exe := gameexe.New()
	exe.Set("MUSIC.theme01.LOOP", []gameexe.Token{gameexe.NewIntToken(1)})

	table := Build(exe)

	if _, ok := table.Track("theme01"); ok {
		t.Fatal("expected a record with no FILE sub-key to be skipped")
	}
}
