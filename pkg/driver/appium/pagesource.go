package appium

import (
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/devicelab-dev/flutter-login-runner/pkg/core"
)

// ParsedElement is one node of a page source snapshot.
// Android and iOS attributes live side by side; only one set is populated.
type ParsedElement struct {
	// Common
	Bounds    core.Bounds
	Enabled   bool
	Displayed bool
	Selected  bool
	Focused   bool
	Clickable bool
	Depth     int
	Children  []*ParsedElement
	Parent    *ParsedElement

	// Android
	Text        string
	ResourceID  string
	ContentDesc string
	HintText    string
	ClassName   string

	// iOS
	Type             string // XCUIElementType
	Name             string // accessibility identifier
	Label            string // accessibility label
	Value            string
	PlaceholderValue string
}

// sourceNode is an element of any name. Page sources name their elements
// after widget classes, so the tree is decoded generically.
type sourceNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []sourceNode `xml:",any"`
}

func (n sourceNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// ParsePageSource parses a page source document into a flat, depth-first
// list of elements and reports the platform it was written by.
func ParsePageSource(xmlData string) ([]*ParsedElement, string, error) {
	var root sourceNode
	if err := xml.Unmarshal([]byte(xmlData), &root); err != nil {
		return nil, "", fmt.Errorf("invalid page source: %w", err)
	}

	switch name := root.XMLName.Local; {
	case name == "AppiumAUT":
		elements := flatten(root.Children, newIOSElement, nil, 0, nil)
		if len(elements) == 0 {
			return nil, "ios", errors.New("no elements found in page source")
		}
		return elements, "ios", nil
	case strings.HasPrefix(name, "XCUIElementType"):
		return flatten([]sourceNode{root}, newIOSElement, nil, 0, nil), "ios", nil
	case name == "hierarchy":
		return flatten(root.Children, newAndroidElement, nil, 0, nil), "android", nil
	default:
		return nil, "", fmt.Errorf("invalid page source: no hierarchy element found (root is <%s>)", name)
	}
}

// flatten converts nodes and their descendants in document order, linking
// parents and children.
func flatten(nodes []sourceNode, convert func(sourceNode) *ParsedElement, parent *ParsedElement, depth int, out []*ParsedElement) []*ParsedElement {
	for _, n := range nodes {
		e := convert(n)
		e.Depth = depth
		e.Parent = parent
		if parent != nil {
			parent.Children = append(parent.Children, e)
		}
		out = append(out, e)
		out = flatten(n.Children, convert, e, depth+1, out)
	}
	return out
}

func newAndroidElement(n sourceNode) *ParsedElement {
	class := n.attr("class")
	if class == "" {
		class = n.XMLName.Local
	}
	return &ParsedElement{
		ClassName:   class,
		Text:        n.attr("text"),
		ResourceID:  n.attr("resource-id"),
		ContentDesc: n.attr("content-desc"),
		HintText:    n.attr("hint"),
		Bounds:      parseBounds(n.attr("bounds")),
		Enabled:     n.attr("enabled") == "true",
		Displayed:   n.attr("displayed") != "false",
		Selected:    n.attr("selected") == "true",
		Focused:     n.attr("focused") == "true",
		Clickable:   n.attr("clickable") == "true",
	}
}

// newIOSElement reads an XCUITest node. XCUITest omits enabled and visible
// when they are true.
func newIOSElement(n sourceNode) *ParsedElement {
	typ := n.attr("type")
	if typ == "" {
		typ = n.XMLName.Local
	}
	atoi := func(name string) int {
		v, _ := strconv.Atoi(n.attr(name))
		return v
	}
	return &ParsedElement{
		Type:             typ,
		Name:             n.attr("name"),
		Label:            n.attr("label"),
		Value:            n.attr("value"),
		PlaceholderValue: n.attr("placeholderValue"),
		Bounds:           core.Bounds{X: atoi("x"), Y: atoi("y"), Width: atoi("width"), Height: atoi("height")},
		Enabled:          n.attr("enabled") != "false",
		Displayed:        n.attr("visible") != "false",
		Selected:         n.attr("selected") == "true",
		Focused:          n.attr("focused") == "true",
	}
}

// parseBounds parses an Android bounds attribute, "[x1,y1][x2,y2]".
func parseBounds(s string) core.Bounds {
	var x1, y1, x2, y2 int
	if n, err := fmt.Sscanf(s, "[%d,%d][%d,%d]", &x1, &y1, &x2, &y2); err != nil || n != 4 {
		return core.Bounds{}
	}
	return core.Bounds{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Class returns the widget class (Android) or XCUIElementType (iOS).
func (e *ParsedElement) Class() string {
	if e.Type != "" {
		return e.Type
	}
	return e.ClassName
}

// Labels returns the non-empty human-readable attributes of the element
// in the order a user would recognise them.
func (e *ParsedElement) Labels() []string {
	var labels []string
	for _, s := range []string{e.Text, e.ContentDesc, e.HintText, e.Label, e.Name, e.Value, e.PlaceholderValue} {
		if s != "" {
			labels = append(labels, s)
		}
	}
	return labels
}

// ResourceName returns the resource-id (Android) or accessibility identifier (iOS).
func (e *ParsedElement) ResourceName() string {
	if e.ResourceID != "" {
		return e.ResourceID
	}
	return e.Name
}

// SortClickableFirst returns a copy of elements with clickable ones first,
// keeping document order within each group.
func SortClickableFirst(elements []*ParsedElement) []*ParsedElement {
	out := slices.Clone(elements)
	slices.SortStableFunc(out, func(a, b *ParsedElement) int {
		return clickRank(a) - clickRank(b)
	})
	return out
}

func clickRank(e *ParsedElement) int {
	if e.Clickable {
		return 0
	}
	return 1
}

// GetClickableElement returns the element to tap on: the element itself when
// clickable, otherwise its nearest clickable ancestor. Flutter renders button
// labels as non-clickable children of the tappable container.
func GetClickableElement(elem *ParsedElement) *ParsedElement {
	if elem == nil {
		return nil
	}
	for e := elem; e != nil; e = e.Parent {
		if e.Clickable {
			return e
		}
	}
	return elem
}
