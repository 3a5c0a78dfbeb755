package project

import (
	"testing"

	"artifactexec/internal/model"
)

func mustTransform(t *testing.T, pattern string, replacements ...string) model.MatchTransform {
	t.Helper()
	mt, err := model.NewMatchTransform(pattern, replacements)
	if err != nil {
		t.Fatal(err)
	}
	return mt
}

func TestProjectOutputPaths(t *testing.T) {
	inputs, err := model.NewFilesManifestFromConfig([]string{
		"a/b/c/p.vwx", "a/b/d/p.vwx", "a/b/o.stu", "a/b/p.vwx", "a/n.stu", "m.stu",
	})
	if err != nil {
		t.Fatal(err)
	}

	desc, err := model.NewOutputsDescription(
		[]string{"out/log"},
		[]model.MatchTransformSequence{
			{Stages: []model.MatchTransform{
				mustTransform(t, `^(.*)[.](stu|vwx)$`, "out/$1.out.1", "out/$1.out.2"),
			}},
			{Stages: []model.MatchTransform{
				mustTransform(t, `^(.*)[.]stu$`, "out/$1.out.stu"),
			}},
		},
		[]string{`^.*/c/.*$`, `^.*/o[.]stu$`},
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Project(inputs, desc)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"out/a/b/d/p.out.1", "out/a/b/d/p.out.2",
		"out/a/b/p.out.1", "out/a/b/p.out.2",
		"out/a/n.out.1", "out/a/n.out.2", "out/a/n.out.stu",
		"out/log",
		"out/m.out.1", "out/m.out.2", "out/m.out.stu",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestProjectDropsUnmatchedStage(t *testing.T) {
	inputs, err := model.NewFilesManifestFromConfig([]string{"x.bin"})
	if err != nil {
		t.Fatal(err)
	}
	desc, err := model.NewOutputsDescription(nil, []model.MatchTransformSequence{
		{Stages: []model.MatchTransform{mustTransform(t, `^(.*)[.]stu$`, "out/$1")}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Project(inputs, desc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no outputs for a non-matching stage, got %v", got)
	}
}
