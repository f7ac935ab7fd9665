// Package manifest reads central package management manifests
// (Directory.Packages.props style XML documents).
//
// A manifest declares package versions with PackageVersion elements and may
// define MSBuild properties inside PropertyGroup blocks:
//
//	<Project>
//	  <PropertyGroup>
//	    <FooVersion>1.2.3</FooVersion>
//	  </PropertyGroup>
//	  <ItemGroup>
//	    <PackageVersion Include="Bar" Version="$(FooVersion)" />
//	  </ItemGroup>
//	</Project>
//
// Parse resolves $(Name) references in versions against the declared
// properties and returns one model.PackageRef per usable entry:
//
//	refs, err := manifest.Parse("Directory.Packages.props")
//	// refs == []model.PackageRef{{ID: "Bar", Version: "1.2.3"}}
package manifest
