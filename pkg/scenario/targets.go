package scenario

import "github.com/devicelab-dev/flutter-login-runner/pkg/locator"

// Targets holds the selector chains for the elements of the login flow.
type Targets struct {
	Navigation []locator.Selector // button leading to the login screen
	Username   []locator.Selector
	Password   []locator.Selector
	Submit     []locator.Selector
}

// DefaultTargets returns selector chains for the sample Flutter app: widget
// keys first, then widget types, then the native accessibility tree, then a
// text scan.
func DefaultTargets(platform string) Targets {
	editText, secureText, button := "android.widget.EditText", "android.widget.EditText", "android.widget.Button"
	if platform == "ios" {
		editText, secureText, button = "XCUIElementTypeTextField", "XCUIElementTypeSecureTextField", "XCUIElementTypeButton"
	}

	return Targets{
		Navigation: []locator.Selector{
			locator.FrameworkSelector{Key: "login_screen_button"},
			locator.FrameworkSelector{Text: "Login Screen"},
			locator.AccessibilitySelector{ClassName: button, Hint: "Login Screen"},
			locator.HeuristicSelector{Hints: []string{"login screen"}},
		},
		Username: []locator.Selector{
			locator.FrameworkSelector{Key: "username_field"},
			locator.FrameworkSelector{Type: "TextField", Index: 0},
			locator.AccessibilitySelector{ClassName: editText, Hint: "user(name)?|email"},
			locator.AccessibilitySelector{ClassName: editText, Index: 0},
			locator.HeuristicSelector{Hints: []string{"username", "email"}},
		},
		Password: []locator.Selector{
			locator.FrameworkSelector{Key: "password_field"},
			locator.FrameworkSelector{Type: "TextField", Index: 1},
			locator.AccessibilitySelector{ClassName: secureText, Hint: "password"},
			locator.HeuristicSelector{Hints: []string{"password"}},
		},
		Submit: []locator.Selector{
			locator.FrameworkSelector{Key: "login_button"},
			locator.FrameworkSelector{Text: "Submit"},
			locator.AccessibilitySelector{ClassName: button, Hint: "submit|log ?in|sign ?in"},
			locator.HeuristicSelector{Hints: []string{"submit", "login", "log in", "sign in"}},
		},
	}
}
