package parsers

import (
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
)

// allDescriptors is the static parser catalog. Order matters: earlier entries
// win heuristic ties, and the fallback must come last.
func allDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:         "arris_sb8200",
			Manufacturer: "ARRIS",
			Models:       []string{"SB8200", "SB6190", "S33"},
			Status:       StatusVerified,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapOFDMDownstream,
				docsis.CapATDMAUpstream, docsis.CapOFDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyBasic,
			AuthSpec: &auth.StrategyDescriptor{
				Kind:            auth.StrategyBasic,
				VerificationURL: "/cmconnectionstatus.html",
			},
			URLPatterns: []URLPattern{
				{Path: "/cmconnectionstatus.html", AuthRequired: true, Priority: 1},
				{Path: "/cgi-bin/status", AuthRequired: true, Priority: 2},
			},
			PreAuthMatch:  []string{"arris"},
			PostAuthMatch: []string{"arris", "downstream bonded channels"},
			PageHintPath:  "/cmconnectionstatus.html",
			New:           func() Parser { return arrisParser{} },
		},
		{
			Name:         "technicolor_tc4400",
			Manufacturer: "Technicolor",
			Models:       []string{"TC4400", "CGA4234"},
			Status:       StatusVerified,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapOFDMDownstream,
				docsis.CapATDMAUpstream, docsis.CapOFDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyBasic,
			AuthSpec: &auth.StrategyDescriptor{
				Kind:            auth.StrategyBasic,
				VerificationURL: "/cmconnectionstatus.html",
			},
			URLPatterns: []URLPattern{
				{Path: "/cmconnectionstatus.html", AuthRequired: true, Priority: 1},
			},
			PreAuthMatch:  []string{"technicolor"},
			PostAuthMatch: []string{"technicolor", "channel type"},
			PageHintPath:  "/cmconnectionstatus.html",
			New:           func() Parser { return technicolorParser{} },
		},
		{
			Name:         "netgear_cm",
			Manufacturer: "NETGEAR",
			Models:       []string{"CM1000", "CM1200", "CM2000"},
			Status:       StatusVerified,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapOFDMDownstream,
				docsis.CapATDMAUpstream, docsis.CapOFDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyFormBase64,
			AuthSpec: &auth.StrategyDescriptor{
				Kind: auth.StrategyFormBase64,
				Form: &auth.FormSpec{
					Action:          "/goform/GenieLogin",
					Method:          "POST",
					UsernameField:   "loginUsername",
					PasswordField:   "loginPassword",
					Hidden:          map[string]string{"login": "1"},
					SuccessRedirect: "DocsisStatus.htm",
				},
			},
			URLPatterns: []URLPattern{
				{Path: "/DocsisStatus.htm", AuthRequired: true, Priority: 1},
				{Path: "/RouterStatus.htm", AuthRequired: true, Priority: 2},
			},
			PreAuthMatch:  []string{"netgear"},
			PostAuthMatch: []string{"netgear", "docsisstatus"},
			PageHintPath:  "/DocsisStatus.htm",
			LogoutPath:    "/Logout.htm",
			New:           func() Parser { return netgearParser{} },
		},
		{
			Name:         "motorola_mb",
			Manufacturer: "Motorola",
			Models:       []string{"MB8600", "MB8611", "MB7621"},
			Status:       StatusVerified,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapATDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
				docsis.CapRestart,
			),
			AuthKind: auth.StrategyHNAP,
			AuthSpec: &auth.StrategyDescriptor{
				Kind: auth.StrategyHNAP,
				HNAP: &auth.HNAPSpec{Algorithm: "md5"},
			},
			URLPatterns: []URLPattern{
				{Path: "/HNAP1/", AuthRequired: true, Priority: 1},
			},
			PreAuthMatch:  []string{"motorola", "hnap"},
			PostAuthMatch: []string{"getmotostatus"},
			PageHintPath:  "/HNAP1/",
			Restart: &RestartSpec{
				Kind:           RestartHNAP,
				HNAPAction:     "SetStatusSecuritySettings",
				HNAPSettings:   "GetStatusSecuritySettings",
				HNAPField:      "MotoStatusSecurityAction",
				HNAPFieldValue: "1",
			},
			New: func() Parser { return motorolaParser{} },
		},
		{
			Name:         "virgin_superhub",
			Manufacturer: "Virgin Media",
			Models:       []string{"Super Hub 5", "Hub 4"},
			Status:       StatusVerified,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapOFDMDownstream,
				docsis.CapATDMAUpstream, docsis.CapOFDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyNone,
			AuthSpec: &auth.StrategyDescriptor{Kind: auth.StrategyNone},
			URLPatterns: []URLPattern{
				{Path: "/rest/v1/cablemodem/downstream", AuthRequired: false, Priority: 1},
			},
			PreAuthMatch: []string{"rest", "cablemodem"},
			New:          func() Parser { return superhubParser{} },
		},
		{
			Name:         "hitron_coda",
			Manufacturer: "Hitron",
			Models:       []string{"CODA-4582", "CODA-4680"},
			Status:       StatusAwaitingVerify,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapATDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyFormAjax,
			AuthSpec: &auth.StrategyDescriptor{
				Kind: auth.StrategyFormAjax,
				Form: &auth.FormSpec{
					Action:        "/goform/login",
					Method:        "POST",
					CombinedField: "arguments",
					NonceField:    "nonce",
				},
			},
			URLPatterns: []URLPattern{
				{Path: "/data/dsinfo.asp", AuthRequired: true, Priority: 1},
			},
			PreAuthMatch:  []string{"hitron"},
			PostAuthMatch: []string{"portid", "signalstrength"},
			PageHintPath:  "/data/dsinfo.asp",
			New:           func() Parser { return hitronParser{} },
		},
		{
			Name:         "compal_ch7465",
			Manufacturer: "Compal",
			Models:       []string{"CH7465LG", "Connect Box"},
			Status:       StatusAwaitingVerify,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapATDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyURLToken,
			AuthSpec: &auth.StrategyDescriptor{
				Kind: auth.StrategyURLToken,
				URLToken: &auth.URLTokenSpec{
					LoginPath:      "/php/index_login.php",
					TokenParam:     "token",
					CookieName:     "sessionToken",
					SendAjaxHeader: true,
				},
			},
			URLPatterns: []URLPattern{
				{Path: "/php/ajaxGet_connection_data.php", AuthRequired: true, Priority: 1},
			},
			PreAuthMatch:  []string{"compal"},
			PostAuthMatch: []string{"channelid", "freq"},
			PageHintPath:  "/php/ajaxGet_connection_data.php",
			LogoutPath:    "/php/logout.php",
			New:           func() Parser { return compalParser{} },
		},
		{
			Name:         "sagemcom_fast",
			Manufacturer: "Sagemcom",
			Models:       []string{"F@st 3890", "F@st 3686"},
			Status:       StatusInProgress,
			Capabilities: docsis.NewCapabilitySet(
				docsis.CapSCQAMDownstream, docsis.CapOFDMDownstream,
				docsis.CapATDMAUpstream,
				docsis.CapSystemUptime, docsis.CapSoftwareVersion,
			),
			AuthKind: auth.StrategyFormDynamic,
			AuthSpec: &auth.StrategyDescriptor{
				Kind: auth.StrategyFormDynamic,
				Form: &auth.FormSpec{
					Action:          "/login.cgi",
					Method:          "POST",
					UsernameField:   "username",
					PasswordField:   "password",
					DynamicSelector: "form#login",
					SuccessRedirect: "status",
				},
			},
			URLPatterns: []URLPattern{
				{Path: "/status_docsis.html", AuthRequired: true, Priority: 1},
			},
			PreAuthMatch:  []string{"sagemcom"},
			PostAuthMatch: []string{"sagemcom", "downstream"},
			PageHintPath:  "/status_docsis.html",
			New:           func() Parser { return sagemcomParser{} },
		},
		{
			Name:         "broadcom_generic",
			Manufacturer: "Broadcom",
			Models:       []string{"generic"},
			Status:       StatusUnsupported,
			Capabilities: docsis.NewCapabilitySet(docsis.CapSCQAMDownstream),
			AuthKind:     auth.StrategyNone,
			AuthSpec:     &auth.StrategyDescriptor{Kind: auth.StrategyNone},
			URLPatterns: []URLPattern{
				{Path: "/", AuthRequired: false, Priority: 1},
			},
			Fallback: true,
			New:      func() Parser { return broadcomParser{} },
		},
	}
}
