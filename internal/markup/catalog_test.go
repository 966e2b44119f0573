package markup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const catalogFixture = `<tbody id="dostepneEmisje:j_idt138_data" class="ui-datatable-data ui-widget-content">
<tr data-ri="0" class="ui-widget-content ui-datatable-even" role="row">
	<td role="gridcell" style="white-space: normal;"><span id="dostepneEmisje:j_idt138:0:nazwaSkrocona">6-letnie:
			ROS0529</span>
		<script id="dostepneEmisje:j_idt138:0:j_idt140_s" type="text/javascript">$(function () { PrimeFaces.cw("ExtTooltip", "widget_dostepneEmisje_j_idt138_0_j_idt140", { forTarget: "dostepneEmisje:j_idt138:0:nazwaSkrocona", content: { text: "RODZINNYCH SZEŚCIOLETNICH OSZCZĘDNOŚCIOWYCH OBLIGACJI SKARBOWYCH" } }); });</script>
	</td>
	<td role="gridcell"><span style="white-space: nowrap;">od
			2023-05-01 <br /> do 2023-05-31</span></td>
	<td role="gridcell"><span style="white-space: nowrap;">7,20%</span></td>
	<td role="gridcell"><a href="http://www.obligacjeskarbowe.pl/listy-emisyjne/?id=ROS0529" target="_blank">pokaż</a></td>
	<td role="gridcell"><a id="dostepneEmisje:j_idt138:0:wybierz" href="#" class="ui-commandlink ui-widget" onclick="PrimeFaces.ab({s:&quot;dostepneEmisje:j_idt138:0:wybierz&quot;,u:&quot;dostepneEmisje&quot;});return false;">wybierz</a></td>
</tr>
<tr data-ri="1" class="ui-widget-content ui-datatable-odd" role="row">
	<td role="gridcell" style="white-space: normal;"><span id="dostepneEmisje:j_idt138:1:nazwaSkrocona">12-letnie:
			ROD0535</span>
		<script id="dostepneEmisje:j_idt138:1:j_idt140_s" type="text/javascript">$(function () { PrimeFaces.cw("ExtTooltip", "widget_dostepneEmisje_j_idt138_1_j_idt140", { forTarget: "dostepneEmisje:j_idt138:1:nazwaSkrocona", content: { text: "RODZINNYCH DWUNASTOLETNICH OSZCZĘDNOŚCIOWYCH OBLIGACJI SKARBOWYCH" } }); });</script>
	</td>
	<td role="gridcell"><span style="white-space: nowrap;">od
			2023-05-01 <br /> do 2023-05-31</span></td>
	<td role="gridcell"><span style="white-space: nowrap;">7,50%</span></td>
	<td role="gridcell"><a href="http://www.obligacjeskarbowe.pl/listy-emisyjne/?id=ROD0535" target="_blank">pokaż</a></td>
	<td role="gridcell"><a id="dostepneEmisje:j_idt138:1:wybierz" href="#" class="ui-commandlink ui-widget" onclick="PrimeFaces.ab({s:&quot;dostepneEmisje:j_idt138:1:wybierz&quot;,u:&quot;dostepneEmisje&quot;});return false;">wybierz</a></td>
</tr>
</tbody>`

func TestAvailableBonds(t *testing.T) {
	doc := parseDoc(t, "<table>"+catalogFixture+"</table>")
	bonds, err := AvailableBonds(doc, "/foo.html")
	if err != nil {
		t.Fatal(err)
	}
	if len(bonds) != 2 {
		t.Fatalf("got %d bonds, want 2", len(bonds))
	}

	first := bonds[0]
	if first.Kind != "6-letnie" || first.IssueCode != "ROS0529" {
		t.Errorf("Kind/IssueCode = %q/%q", first.Kind, first.IssueCode)
	}
	if first.DurationMonths != 6*12 {
		t.Errorf("DurationMonths = %d, want 72", first.DurationMonths)
	}
	if want := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC); !first.SaleFrom.Equal(want) {
		t.Errorf("SaleFrom = %s", first.SaleFrom)
	}
	if want := time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC); !first.SaleTo.Equal(want) {
		t.Errorf("SaleTo = %s", first.SaleTo)
	}
	if !first.Rate.Equal(decimal.RequireFromString("7.20")) {
		t.Errorf("Rate = %s", first.Rate)
	}
	if first.ProspectusURL != "http://www.obligacjeskarbowe.pl/listy-emisyjne/?id=ROS0529" {
		t.Errorf("ProspectusURL = %q", first.ProspectusURL)
	}
	if first.Select.Source != "dostepneEmisje:j_idt138:0:wybierz" || first.Select.Render != "dostepneEmisje" {
		t.Errorf("Select = %+v", first.Select)
	}
	if first.CatalogPath != "/foo.html" {
		t.Errorf("CatalogPath = %q", first.CatalogPath)
	}
	if first.Issuer != "Skarb Państwa" {
		t.Errorf("Issuer = %q", first.Issuer)
	}

	second := bonds[1]
	if second.IssueCode != "ROD0535" || second.DurationMonths != 12*12 {
		t.Errorf("second row = %q/%d", second.IssueCode, second.DurationMonths)
	}
	if second.Select.Source != "dostepneEmisje:j_idt138:1:wybierz" {
		t.Errorf("second Select = %+v", second.Select)
	}
}

func TestParseSelectOnclick(t *testing.T) {
	action, err := ParseSelectOnclick(`PrimeFaces.ab({s:"dostepneEmisje:j_idt138:0:wybierz",u:"dostepneEmisje"});return false;`)
	if err != nil {
		t.Fatal(err)
	}
	if action.Source != "dostepneEmisje:j_idt138:0:wybierz" || action.Render != "dostepneEmisje" {
		t.Errorf("action = %+v", action)
	}
}

func TestParseSelectOnclickWithFormArgument(t *testing.T) {
	action, err := ParseSelectOnclick(`PrimeFaces.ab({s:"dostepneEmisje:j_idt138:2:wybierz",f:"dostepneEmisje",u:"dostepneEmisje"});return false;`)
	if err != nil {
		t.Fatal(err)
	}
	if action.Source != "dostepneEmisje:j_idt138:2:wybierz" {
		t.Errorf("action = %+v", action)
	}
}

func TestParseSelectOnclickRejectsUnknownShape(t *testing.T) {
	if _, err := ParseSelectOnclick(`doSomethingElse();`); err == nil {
		t.Error("expected error for unknown handler shape")
	}
}

func TestFamilyNominal(t *testing.T) {
	doc := parseDoc(t, `<span class="formfield-base">Wartość nominalna dotychczas zakupionych obligacji za środki przyznane w ramach programów wsparcia rodziny wynosi: 9000,00</span>`)
	nominal, err := FamilyNominal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !nominal.Amount.Equal(decimal.RequireFromString("9000.00")) {
		t.Errorf("FamilyNominal = %s", nominal.Amount)
	}
}

func TestFamilyNominalMissing(t *testing.T) {
	doc := parseDoc(t, `<span class="formfield-base">coś innego</span>`)
	if _, err := FamilyNominal(doc); err == nil {
		t.Error("expected error when the family nominal line is absent")
	}
}
