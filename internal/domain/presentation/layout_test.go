package presentation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/leadscore/internal/domain/chart"
	"github.com/okian/leadscore/internal/domain/presentation"
	"github.com/smartystreets/goconvey/convey"
)

func TestDefaultLayout(t *testing.T) {
	convey.Convey("Given the built-in layout", t, func() {
		l := presentation.DefaultLayout()

		convey.Convey("Then every chart has a slot", func() {
			slots := map[string]bool{}
			for _, s := range l.Slides {
				for _, c := range s.Charts {
					slots[c.Chart] = true
				}
			}
			for _, n := range chart.Names() {
				convey.So(slots[n], convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then the report placeholders are listed once", func() {
			convey.So(l.Placeholders(), convey.ShouldResemble, []string{
				"{{organisatie}}", "{{rapport_datum}}", "{{respondent_naam}}",
				"{{totaalscore}}", "{{transitiefase_naam}}",
				"{{transitiefase}}", "{{laagst_scorende_domein}}",
			})
		})
	})
}

func TestParseLayout(t *testing.T) {
	convey.Convey("Given layout documents", t, func() {
		convey.Convey("When a chart has no size", func() {
			_, err := presentation.ParseLayout([]byte("slides:\n  - slide: 2\n    charts:\n      - { chart: domain_scores, x: 1, y: 1 }\n"))
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "invalid geometry")
		})

		convey.Convey("When a slide is listed twice", func() {
			_, err := presentation.ParseLayout([]byte("slides:\n  - slide: 2\n  - slide: 2\n"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When an unknown key is used", func() {
			_, err := presentation.ParseLayout([]byte("slides:\n  - slide: 2\n    colour: red\n"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a text slot has no key", func() {
			_, err := presentation.ParseLayout([]byte("slides:\n  - slide: 1\n    text:\n      - { placeholder: \"{{x}}\" }\n"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the layout is loaded from disk", func() {
			path := filepath.Join(t.TempDir(), "layout.yaml")
			doc := "slides:\n  - slide: 3\n    text:\n      - { placeholder: \"[[org]]\", key: organization }\n"
			convey.So(os.WriteFile(path, []byte(doc), 0o600), convey.ShouldBeNil)

			l, err := presentation.LoadLayout(path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(l.Slides, convey.ShouldHaveLength, 1)
			convey.So(l.Slides[0].Text[0].Key, convey.ShouldEqual, "organization")
		})

		convey.Convey("When no path is given", func() {
			l, err := presentation.LoadLayout("")
			convey.So(err, convey.ShouldBeNil)
			convey.So(l.Slides, convey.ShouldResemble, presentation.DefaultLayout().Slides)
		})
	})
}
