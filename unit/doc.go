// Package unit models a trace-handler program unit.
//
// # Overview
//
// A [Unit] is the class-like structure that probeguard verifies. It is
// usually produced by decoding a class file, but callers that already hold a
// parsed representation may build one directly:
//
//	u := &unit.Unit{
//	    Name:        "samples/Histo",
//	    Super:       unit.RootObject,
//	    Access:      unit.AccPublic | unit.AccSuper,
//	    Annotations: []unit.Annotation{{Type: "Lnet/java/btrace/annotations/BTrace;"}},
//	    Fields: []unit.Field{
//	        {Name: "histo", Desc: "Ljava/util/Map;", Access: unit.AccPrivate | unit.AccStatic},
//	    },
//	}
//
// # Names
//
// All names use the internal binary form: packages are separated by '/',
// and type descriptors follow the JVM grammar ("I", "Ljava/lang/String;",
// "(Ljava/lang/Object;)V").
//
// # Structure
//
//	Unit
//	├── Annotations   []Annotation
//	├── InnerClasses  []InnerClass
//	├── Fields        []Field
//	└── Methods       []Method
//	    ├── Annotations       []Annotation
//	    ├── ParamAnnotations  [][]Annotation  (one slice per parameter)
//	    └── Body              []Instruction   (program order)
//
// # Annotation Values
//
// Element values form a closed set of types implementing [Value]:
//
//	┌──────────────┬────────────────────────────────────┐
//	│ Type         │ Source                             │
//	├──────────────┼────────────────────────────────────┤
//	│ String       │ string constants                   │
//	│ Int          │ byte, short, int constants         │
//	│ Long         │ long constants                     │
//	│ Float        │ float constants                    │
//	│ Double       │ double constants                   │
//	│ Bool         │ boolean constants                  │
//	│ Char         │ char constants                     │
//	│ Enum         │ enum constants                     │
//	│ ClassRef     │ class literals                     │
//	│ *Annotation  │ nested annotations                 │
//	│ Array        │ arrays of any of the above         │
//	└──────────────┴────────────────────────────────────┘
package unit
