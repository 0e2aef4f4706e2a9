package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJavaParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewJavaParser()
	assert.Equal(t, "java", parser.Language())

	t.Run("PackageAndImports", func(t *testing.T) {
		t.Parallel()
		content := []byte(`
package org.team;

import java.util.List;
import java.util.*;
import static java.util.Collections.emptyList;

public class Player {}
`)
		result, err := parser.Parse("Player.java", content)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, "org.team", result.Package)
		assert.False(t, result.HasErrors)
		require.Len(t, result.Imports, 3)

		assert.Equal(t, "java.util.List", result.Imports[0].Path)
		assert.False(t, result.Imports[0].IsWildcard)

		assert.Equal(t, "java.util", result.Imports[1].Path)
		assert.True(t, result.Imports[1].IsWildcard)

		assert.Equal(t, "java.util.Collections.emptyList", result.Imports[2].Path)
		assert.True(t, result.Imports[2].IsStatic)
	})

	t.Run("DefaultPackage", func(t *testing.T) {
		t.Parallel()
		result, err := parser.Parse("Foo.java", []byte(`class Foo {}`))
		require.NoError(t, err)

		assert.Empty(t, result.Package)
		require.Len(t, result.Types, 1)
		assert.Equal(t, "Foo", result.Types[0].Name)
		assert.Equal(t, DeclClass, result.Types[0].Kind)
	})

	t.Run("Methods", func(t *testing.T) {
		t.Parallel()
		content := []byte(`
package org.team;

public class Player {
    public String getName() { return name; }
    public boolean isActive() { return true; }
    public int[] getScores() { return scores; }
    public java.util.List<Player> getTeamMates() { return null; }
    public void setName(String name, int x) {}
    public static int count(String... values) { return 0; }
    public <T> T get(Class<T> type) { return null; }
    int legacy()[] { return null; }
}
`)
		result, err := parser.Parse("Player.java", content)
		require.NoError(t, err)
		require.Len(t, result.Types, 1)

		methods := result.Types[0].Methods
		require.Len(t, methods, 8)

		assert.Equal(t, "getName", methods[0].Name)
		require.NotNil(t, methods[0].ReturnType)
		assert.Equal(t, RefNamed, methods[0].ReturnType.Kind)
		assert.Equal(t, "String", methods[0].ReturnType.Name)
		assert.Equal(t, 0, methods[0].ParameterCount)
		assert.True(t, methods[0].HasModifier("public"))

		assert.Equal(t, RefPrimitive, methods[1].ReturnType.Kind)
		assert.Equal(t, "boolean", methods[1].ReturnType.Name)

		scores := methods[2].ReturnType
		assert.Equal(t, RefArray, scores.Kind)
		require.NotNil(t, scores.Element)
		assert.Equal(t, "int", scores.Element.Name)

		mates := methods[3].ReturnType
		assert.Equal(t, "java.util.List", mates.Name)
		require.Len(t, mates.Args, 1)
		assert.Equal(t, "Player", mates.Args[0].Name)

		assert.Equal(t, RefVoid, methods[4].ReturnType.Kind)
		assert.Equal(t, 2, methods[4].ParameterCount)

		assert.Equal(t, 1, methods[5].ParameterCount)
		assert.True(t, methods[5].HasModifier("static"))

		assert.Equal(t, []string{"T"}, methods[6].TypeParameters)

		legacy := methods[7].ReturnType
		assert.Equal(t, RefArray, legacy.Kind)
		assert.Equal(t, RefPrimitive, legacy.Element.Kind)
	})

	t.Run("Wildcards", func(t *testing.T) {
		t.Parallel()
		content := []byte(`
class Box {
    List<? extends Number> getNumbers() { return null; }
    List<?> getAnything() { return null; }
    List<? super Integer> getSink() { return null; }
}
`)
		result, err := parser.Parse("Box.java", content)
		require.NoError(t, err)
		methods := result.Types[0].Methods
		require.Len(t, methods, 3)

		ext := methods[0].ReturnType.Args[0]
		assert.Equal(t, RefWildcard, ext.Kind)
		require.NotNil(t, ext.Element)
		assert.Equal(t, "Number", ext.Element.Name)
		assert.False(t, ext.Super)

		unbounded := methods[1].ReturnType.Args[0]
		assert.Equal(t, RefWildcard, unbounded.Kind)
		assert.Nil(t, unbounded.Element)

		sup := methods[2].ReturnType.Args[0]
		assert.True(t, sup.Super)
		assert.Equal(t, "Integer", sup.Element.Name)
	})

	t.Run("SupertypesAndTypeParameters", func(t *testing.T) {
		t.Parallel()
		content := []byte(`
package org.team;

public class Roster<P extends Player> extends Base implements Iterable<P>, Comparable<Roster<P>> {}
interface Named extends Comparable<Named>, java.io.Serializable {}
enum Position implements Labeled { GOALIE, STRIKER; public String getLabel() { return ""; } }
record Score(int value) implements Comparable<Score> {}
`)
		result, err := parser.Parse("Roster.java", content)
		require.NoError(t, err)
		require.Len(t, result.Types, 4)

		roster := result.Types[0]
		assert.Equal(t, []string{"P"}, roster.TypeParameters)
		require.Len(t, roster.Extends, 1)
		assert.Equal(t, "Base", roster.Extends[0].Name)
		require.Len(t, roster.Implements, 2)
		assert.Equal(t, "Iterable", roster.Implements[0].Name)
		assert.Equal(t, "Comparable", roster.Implements[1].Name)

		named := result.Types[1]
		assert.Equal(t, DeclInterface, named.Kind)
		require.Len(t, named.Extends, 2)
		assert.Equal(t, "java.io.Serializable", named.Extends[1].Name)

		position := result.Types[2]
		assert.Equal(t, DeclEnum, position.Kind)
		require.Len(t, position.Implements, 1)
		require.Len(t, position.Methods, 1)
		assert.Equal(t, "getLabel", position.Methods[0].Name)

		score := result.Types[3]
		assert.Equal(t, DeclRecord, score.Kind)
		require.Len(t, score.Implements, 1)
	})

	t.Run("NestedTypes", func(t *testing.T) {
		t.Parallel()
		content := []byte(`
class Outer {
    int getA() { return 0; }
    static class Inner {
        interface Deep {}
        int getB() { return 0; }
    }
    int getC() { return 0; }
}
`)
		result, err := parser.Parse("Outer.java", content)
		require.NoError(t, err)
		require.Len(t, result.Types, 3)

		assert.Equal(t, "Outer", result.Types[0].BinaryName())
		assert.Equal(t, "Outer.Inner", result.Types[1].BinaryName())
		assert.Equal(t, "Outer.Inner.Deep", result.Types[2].BinaryName())

		require.Len(t, result.Types[0].Methods, 2)
		assert.Equal(t, "getA", result.Types[0].Methods[0].Name)
		assert.Equal(t, "getC", result.Types[0].Methods[1].Name)
		require.Len(t, result.Types[1].Methods, 1)
		assert.Equal(t, "getB", result.Types[1].Methods[0].Name)
	})

	t.Run("SyntaxErrors", func(t *testing.T) {
		t.Parallel()
		content := []byte(`
class Broken {
    int getOk() { return 0; }
    List<String getBad() { return null; }
`)
		result, err := parser.Parse("Broken.java", content)
		require.NoError(t, err)
		assert.True(t, result.HasErrors)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		t.Parallel()
		result, err := parser.Parse("Empty.java", []byte(""))
		require.NoError(t, err)
		assert.Empty(t, result.Types)
		assert.Empty(t, result.Imports)
	})
}
